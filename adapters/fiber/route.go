package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/kontak"
	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/services"
)

type Adapter struct {
	app *fiber.App

	auth      core.AuthHandler
	microsoft core.MicrosoftHandler
	documents core.DocumentHandler
	mail      core.MailHandler
	crm       core.CRMHandler

	frontendURL string
}

var _ kontak.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

// RegisterRoutes mounts every catalog endpoint under BasePath/<group>.
// Operations without a handler answer 501.
func (a *Adapter) RegisterRoutes(k *kontak.Kontak) error {
	a.auth = k.Auth
	a.microsoft = k.Microsoft
	a.documents = k.Documents
	a.mail = k.Mail
	a.crm = k.CRM
	a.frontendURL = k.FrontendURL

	handlers := a.handlers()
	groups := make(map[core.Group]fiber.Router)

	for _, ep := range k.Endpoints.Endpoints() {
		router, ok := groups[ep.Group]
		if !ok {
			router = a.app.Group(k.BasePath + "/" + string(ep.Group))
			groups[ep.Group] = router
		}

		h, ok := handlers[ep.OperationID]
		if !ok {
			h = a.notImplemented
		}
		router.Add([]string{ep.Method}, ep.Path, a.guard(ep.Access, h))
	}

	a.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return nil
}

func (a *Adapter) handlers() map[string]fiber.Handler {
	return map[string]fiber.Handler{
		// auth
		services.OpRegister:          a.register,
		services.OpLogin:             a.login,
		services.OpLogout:            a.logout,
		services.OpLogoutAll:         a.logoutAll,
		services.OpMe:                a.me,
		services.OpVerify:            a.verify,
		services.OpMicrosoftLogin:    a.microsoftLogin,
		services.OpMicrosoftCallback: a.microsoftCallback,
		services.OpMicrosoftUser:     a.microsoftUser,

		// microsoft
		services.OpUploadDocument:   a.uploadDocument,
		services.OpListDocuments:    a.listDocuments,
		services.OpSearchDocuments:  a.searchDocuments,
		services.OpDownloadDocument: a.downloadDocument,
		services.OpSendEmail:        a.sendEmail,
		services.OpListEmails:       a.listEmails,
		services.OpEmailHistory:     a.emailHistory,
		services.OpGetSettings:      a.getSettings,
		services.OpUpdateSettings:   a.updateSettings,

		// crm
		services.OpListCompanies:    a.listCompanies,
		services.OpCreateCompany:    a.createCompany,
		services.OpGetCompany:       a.getCompany,
		services.OpDeleteCompany:    a.deleteCompany,
		services.OpListContacts:     a.listContacts,
		services.OpCreateContact:    a.createContact,
		services.OpGetContact:       a.getContact,
		services.OpDeleteContact:    a.deleteContact,
		services.OpContactDocuments: a.contactDocumentRefs,
		services.OpContactTasks:     a.contactTasks,
		services.OpContactComms:     a.contactCommunications,
		services.OpListLeads:        a.listLeads,
		services.OpCreateLead:       a.createLead,
		services.OpUpdateLeadStatus: a.updateLeadStatus,
		services.OpCreateTask:       a.createTask,
		services.OpCompleteTask:     a.completeTask,
		services.OpLogCommunication: a.logCommunication,
	}
}

func (a *Adapter) notImplemented(c fiber.Ctx) error {
	return a.fail(c, core.ErrNotImplemented)
}
