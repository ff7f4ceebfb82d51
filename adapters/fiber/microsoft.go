package fiber

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
)

// uploadDocument files a multipart upload into the contact folder.
func (a *Adapter) uploadDocument(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return a.fail(c, core.ErrFileRequired)
	}

	content, err := file.Open()
	if err != nil {
		return a.fail(c, goerr.Wrap(err, "failed to open uploaded file", goerr.V("file", file.Filename)))
	}
	defer content.Close()

	input := core.UploadInput{
		CompanyName: c.FormValue("companyName"),
		ContactName: c.FormValue("contactName"),
		FileName:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		Content:     content,
		ContactID:   optional(c.FormValue("contactId")),
		CompanyID:   optional(c.FormValue("companyId")),
		UploadedBy:  currentUser(c).ID,
	}

	doc, err := a.documents.Upload(c.Context(), microsoftToken(c), input)
	if err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (a *Adapter) listDocuments(c fiber.Ctx) error {
	company, contact := c.Query("companyName"), c.Query("contactName")
	if strings.TrimSpace(company) == "" || strings.TrimSpace(contact) == "" {
		return a.fail(c, goerr.Wrap(core.ErrValidation, "companyName and contactName are required"))
	}

	items, err := a.documents.ContactDocuments(c.Context(), microsoftToken(c), company, contact)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"folderPath": a.documents.FolderPath(company, contact),
		"documents":  items,
	})
}

func (a *Adapter) searchDocuments(c fiber.Ctx) error {
	input := core.SearchInput{
		Query:       c.Query("q", c.Query("query")),
		CompanyName: c.Query("companyName"),
		ContactName: c.Query("contactName"),
	}

	items, err := a.documents.Search(c.Context(), microsoftToken(c), input)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"documents": items})
}

func (a *Adapter) downloadDocument(c fiber.Ctx) error {
	file, err := a.documents.Download(c.Context(), microsoftToken(c), c.Params("fileId"))
	if err != nil {
		return a.fail(c, err)
	}

	if file.ContentType != "" {
		c.Set(fiber.HeaderContentType, file.ContentType)
	}
	c.Attachment(file.Name)

	// SendStream closes the body once the response is written.
	if file.Size > 0 {
		return c.SendStream(file.Body, int(file.Size))
	}
	return c.SendStream(file.Body)
}

func (a *Adapter) sendEmail(c fiber.Ctx) error {
	var input core.SendEmailInput
	if err := c.Bind().Body(&input); err != nil {
		return a.invalidBody(c, err)
	}

	if err := a.mail.Send(c.Context(), microsoftToken(c), currentUser(c).ID, input); err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "email sent"})
}

func (a *Adapter) listEmails(c fiber.Ctx) error {
	filter := core.EmailFilter{
		Search: c.Query("search"),
		Top:    queryInt(c, "top", 0),
	}

	messages, err := a.mail.List(c.Context(), microsoftToken(c), filter)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (a *Adapter) emailHistory(c fiber.Ctx) error {
	records, err := a.mail.History(c.Context(), currentUser(c).ID, queryInt(c, "limit", 0))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"emails": records})
}

func (a *Adapter) getSettings(c fiber.Ctx) error {
	settings, err := a.mail.Settings(c.Context(), currentUser(c).ID)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(settings)
}

func (a *Adapter) updateSettings(c fiber.Ctx) error {
	var settings core.IntegrationSettings
	if err := c.Bind().Body(&settings); err != nil {
		return a.invalidBody(c, err)
	}
	settings.UserID = currentUser(c).ID

	if err := a.mail.UpdateSettings(c.Context(), &settings); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(settings)
}

func optional(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}

func queryInt(c fiber.Ctx, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return n
}
