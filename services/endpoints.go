package services

import (
	"fmt"
	"sort"

	"github.com/lborres/kontak/core"
)

// Operation ids bound by HTTP adapters.
const (
	OpRegister          = "register"
	OpLogin             = "login"
	OpLogout            = "logout"
	OpLogoutAll         = "logoutAll"
	OpMe                = "me"
	OpVerify            = "verify"
	OpMicrosoftLogin    = "microsoftLogin"
	OpMicrosoftCallback = "microsoftCallback"
	OpMicrosoftUser     = "microsoftUser"

	OpUploadDocument   = "uploadDocument"
	OpListDocuments    = "listDocuments"
	OpSearchDocuments  = "searchDocuments"
	OpDownloadDocument = "downloadDocument"
	OpSendEmail        = "sendEmail"
	OpListEmails       = "listEmails"
	OpEmailHistory     = "emailHistory"
	OpGetSettings      = "getIntegrationSettings"
	OpUpdateSettings   = "updateIntegrationSettings"
	OpListCompanies    = "listCompanies"
	OpCreateCompany    = "createCompany"
	OpGetCompany       = "getCompany"
	OpDeleteCompany    = "deleteCompany"
	OpListContacts     = "listContacts"
	OpCreateContact    = "createContact"
	OpGetContact       = "getContact"
	OpDeleteContact    = "deleteContact"
	OpContactDocuments = "listContactDocumentRefs"
	OpContactTasks     = "listContactTasks"
	OpContactComms     = "listContactCommunications"
	OpListLeads        = "listLeads"
	OpCreateLead       = "createLead"
	OpUpdateLeadStatus = "updateLeadStatus"
	OpCreateTask       = "createTask"
	OpCompleteTask     = "completeTask"
	OpLogCommunication = "logCommunication"
)

// AuthEndpoints are mounted under the auth group.
func AuthEndpoints() []core.Endpoint {
	ep := func(method, path string, access core.Access, op, desc string) core.Endpoint {
		return core.Endpoint{Group: core.GroupAuth, Method: method, Path: path, Access: access, OperationID: op, Description: desc}
	}
	return []core.Endpoint{
		ep("POST", "/register", core.AccessPublic, OpRegister, "Register a user with email and password"),
		ep("POST", "/login", core.AccessPublic, OpLogin, "Sign in with email and password"),
		ep("POST", "/logout", core.AccessSession, OpLogout, "Invalidate the current session"),
		ep("POST", "/logout-all", core.AccessSession, OpLogoutAll, "Invalidate every session of the current user"),
		ep("GET", "/me", core.AccessSession, OpMe, "Get the current user and session"),
		ep("POST", "/verify", core.AccessPublic, OpVerify, "Report whether a session credential is live"),
		ep("GET", "/microsoft/login", core.AccessPublic, OpMicrosoftLogin, "Get the Microsoft authorization URL"),
		ep("GET", "/microsoft/callback", core.AccessPublic, OpMicrosoftCallback, "Redeem a Microsoft authorization code"),
		ep("GET", "/microsoft/user/:userId", core.AccessSession, OpMicrosoftUser, "Get the signed-in user's Microsoft link"),
	}
}

// MicrosoftEndpoints need a session and a live Microsoft session.
func MicrosoftEndpoints() []core.Endpoint {
	ep := func(method, path string, access core.Access, op, desc string) core.Endpoint {
		return core.Endpoint{Group: core.GroupMicrosoft, Method: method, Path: path, Access: access, OperationID: op, Description: desc}
	}
	return []core.Endpoint{
		ep("POST", "/documents/upload", core.AccessMicrosoft, OpUploadDocument, "Upload a document to a contact folder"),
		ep("GET", "/documents", core.AccessMicrosoft, OpListDocuments, "List a contact folder"),
		ep("GET", "/documents/search", core.AccessMicrosoft, OpSearchDocuments, "Search documents across the organization"),
		ep("GET", "/documents/:fileId/download", core.AccessMicrosoft, OpDownloadDocument, "Download a document"),
		ep("POST", "/email/send", core.AccessMicrosoft, OpSendEmail, "Send an email from the user's mailbox"),
		ep("GET", "/email", core.AccessMicrosoft, OpListEmails, "List recent mailbox messages"),
		ep("GET", "/email/history", core.AccessSession, OpEmailHistory, "List recorded sent emails"),
		ep("GET", "/settings", core.AccessSession, OpGetSettings, "Get integration settings"),
		ep("PUT", "/settings", core.AccessSession, OpUpdateSettings, "Update integration settings"),
	}
}

func CRMEndpoints() []core.Endpoint {
	ep := func(method, path, op, desc string) core.Endpoint {
		return core.Endpoint{Group: core.GroupCRM, Method: method, Path: path, Access: core.AccessSession, OperationID: op, Description: desc}
	}
	return []core.Endpoint{
		ep("GET", "/companies", OpListCompanies, "List companies"),
		ep("POST", "/companies", OpCreateCompany, "Create a company"),
		ep("GET", "/companies/:id", OpGetCompany, "Get a company"),
		ep("DELETE", "/companies/:id", OpDeleteCompany, "Delete a company and its dependent records"),
		ep("GET", "/contacts", OpListContacts, "List contact summaries"),
		ep("POST", "/contacts", OpCreateContact, "Create a contact"),
		ep("GET", "/contacts/:id", OpGetContact, "Get a contact"),
		ep("DELETE", "/contacts/:id", OpDeleteContact, "Delete a contact and its dependent records"),
		ep("GET", "/contacts/:id/documents", OpContactDocuments, "List document references of a contact"),
		ep("GET", "/contacts/:id/tasks", OpContactTasks, "List tasks of a contact"),
		ep("GET", "/contacts/:id/communications", OpContactComms, "List communications of a contact"),
		ep("GET", "/leads", OpListLeads, "List leads"),
		ep("POST", "/leads", OpCreateLead, "Create a lead"),
		ep("PATCH", "/leads/:id/status", OpUpdateLeadStatus, "Move a lead to another status"),
		ep("POST", "/tasks", OpCreateTask, "Create a task"),
		ep("POST", "/tasks/:id/complete", OpCompleteTask, "Complete a task"),
		ep("POST", "/communications", OpLogCommunication, "Log a communication"),
	}
}

// BaseEndpoints is every endpoint the server exposes.
func BaseEndpoints() []core.Endpoint {
	all := AuthEndpoints()
	all = append(all, MicrosoftEndpoints()...)
	return append(all, CRMEndpoints()...)
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s:%s", ep.Group, ep.Method, ep.Path)
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate GROUP:METHOD:PATH combinations.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
	ops       map[string]bool
}

// NewEndpointRegistry creates a registry with all base endpoints registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
		ops:       make(map[string]bool),
	}

	// Base endpoints are static; a conflict here is a programming error.
	if err := reg.RegisterPlugin(BaseEndpoints()); err != nil {
		panic(err)
	}

	return reg
}

// RegisterPlugin registers additional endpoints. If any endpoint conflicts
// with a registered one, or with another in the same batch, nothing from
// the batch is registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	seenOps := make(map[string]bool, len(endpoints))

	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		if ep.OperationID == "" {
			return fmt.Errorf("endpoint %s %s has no operation id", ep.Method, ep.Path)
		}
		if r.ops[ep.OperationID] || seenOps[ep.OperationID] {
			return fmt.Errorf("operation id conflict: %s", ep.OperationID)
		}
		seen[key] = true
		seenOps[ep.OperationID] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[endpointKey(&ep)] = &ep
		r.ops[ep.OperationID] = true
	}

	return nil
}

// Endpoints returns all registered endpoints sorted by group, method and path.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		return endpointKey(result[i]) < endpointKey(result[j])
	})
	return result
}
