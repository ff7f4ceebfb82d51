package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/kontak/core"
)

func listOptions(c fiber.Ctx) core.ListOptions {
	return core.ListOptions{
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
		Search: c.Query("search"),
	}
}

// owner defaults an unset owner reference to the signed-in user.
func owner(c fiber.Ctx, ref **string) {
	if *ref == nil {
		id := currentUser(c).ID
		*ref = &id
	}
}

// Companies

func (a *Adapter) listCompanies(c fiber.Ctx) error {
	companies, err := a.crm.ListCompanies(c.Context(), listOptions(c))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"companies": companies})
}

func (a *Adapter) createCompany(c fiber.Ctx) error {
	var company core.Company
	if err := c.Bind().Body(&company); err != nil {
		return a.invalidBody(c, err)
	}
	owner(c, &company.OwnerID)

	if err := a.crm.CreateCompany(c.Context(), &company); err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

func (a *Adapter) getCompany(c fiber.Ctx) error {
	company, err := a.crm.GetCompany(c.Context(), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(company)
}

func (a *Adapter) deleteCompany(c fiber.Ctx) error {
	if err := a.crm.DeleteCompany(c.Context(), c.Params("id")); err != nil {
		return a.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Contacts

func (a *Adapter) listContacts(c fiber.Ctx) error {
	contacts, err := a.crm.ListContacts(c.Context(), listOptions(c))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"contacts": contacts})
}

func (a *Adapter) createContact(c fiber.Ctx) error {
	var contact core.Contact
	if err := c.Bind().Body(&contact); err != nil {
		return a.invalidBody(c, err)
	}
	owner(c, &contact.OwnerID)

	if err := a.crm.CreateContact(c.Context(), &contact); err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contact)
}

func (a *Adapter) getContact(c fiber.Ctx) error {
	contact, err := a.crm.GetContact(c.Context(), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(contact)
}

func (a *Adapter) deleteContact(c fiber.Ctx) error {
	if err := a.crm.DeleteContact(c.Context(), c.Params("id")); err != nil {
		return a.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *Adapter) contactDocumentRefs(c fiber.Ctx) error {
	docs, err := a.documents.ContactDocumentRefs(c.Context(), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs})
}

func (a *Adapter) contactTasks(c fiber.Ctx) error {
	tasks, err := a.crm.ListTasks(c.Context(), c.Params("id"), listOptions(c))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func (a *Adapter) contactCommunications(c fiber.Ctx) error {
	comms, err := a.crm.ListCommunications(c.Context(), c.Params("id"), listOptions(c))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"communications": comms})
}

// Leads

func (a *Adapter) listLeads(c fiber.Ctx) error {
	leads, err := a.crm.ListLeads(c.Context(), listOptions(c))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"leads": leads})
}

func (a *Adapter) createLead(c fiber.Ctx) error {
	var lead core.Lead
	if err := c.Bind().Body(&lead); err != nil {
		return a.invalidBody(c, err)
	}
	owner(c, &lead.AssignedTo)

	if err := a.crm.CreateLead(c.Context(), &lead); err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lead)
}

func (a *Adapter) updateLeadStatus(c fiber.Ctx) error {
	var body struct {
		Status core.LeadStatus `json:"status"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return a.invalidBody(c, err)
	}

	lead, err := a.crm.UpdateLeadStatus(c.Context(), c.Params("id"), body.Status)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(lead)
}

// Tasks

func (a *Adapter) createTask(c fiber.Ctx) error {
	var task core.Task
	if err := c.Bind().Body(&task); err != nil {
		return a.invalidBody(c, err)
	}
	owner(c, &task.AssignedTo)

	if err := a.crm.CreateTask(c.Context(), &task); err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (a *Adapter) completeTask(c fiber.Ctx) error {
	task, err := a.crm.CompleteTask(c.Context(), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(task)
}

// Communications

func (a *Adapter) logCommunication(c fiber.Ctx) error {
	var comm core.Communication
	if err := c.Bind().Body(&comm); err != nil {
		return a.invalidBody(c, err)
	}
	owner(c, &comm.UserID)

	if err := a.crm.LogCommunication(c.Context(), &comm); err != nil {
		return a.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comm)
}
