package pgx

import "github.com/lborres/kontak/core"

// Migrations is the ordered schema. Append new versions; never edit an
// applied one. Every statement is idempotent so a migration whose objects
// partly exist, e.g. from a schema built before the ledger, completes the
// missing ones on its next run.
func Migrations() []core.Migration {
	return []core.Migration{
		{
			Version: 1,
			Name:    "create_users",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS users (
					id                   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					email                text NOT NULL,
					name                 text NOT NULL DEFAULT '',
					password_hash        text,
					microsoft_id         text,
					microsoft_email      text,
					microsoft_account_id text,
					last_login_at        timestamptz,
					created_at           timestamptz NOT NULL DEFAULT now(),
					updated_at           timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
				`CREATE UNIQUE INDEX IF NOT EXISTS users_microsoft_id_key ON users (microsoft_id) WHERE microsoft_id IS NOT NULL`,
			},
		},
		{
			Version: 2,
			Name:    "create_sessions",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS sessions (
					id         text PRIMARY KEY,
					user_id    uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
					token_hash text NOT NULL UNIQUE,
					ip_address text NOT NULL DEFAULT '',
					user_agent text NOT NULL DEFAULT '',
					expires_at timestamptz NOT NULL,
					created_at timestamptz NOT NULL DEFAULT now(),
					updated_at timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS sessions_user_id_idx ON sessions (user_id)`,
				`CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at)`,
			},
		},
		{
			Version: 3,
			Name:    "create_crm_companies",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS crm_companies (
					id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					name       text NOT NULL,
					industry   text,
					website    text,
					phone      text,
					address    text,
					notes      text,
					tags       text[] NOT NULL DEFAULT '{}',
					owner_id   uuid REFERENCES users (id) ON DELETE SET NULL,
					created_at timestamptz NOT NULL DEFAULT now(),
					updated_at timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS crm_companies_name_idx ON crm_companies (name)`,
			},
		},
		{
			Version: 4,
			Name:    "create_crm_contacts",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS crm_contacts (
					id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					first_name text NOT NULL DEFAULT '',
					last_name  text NOT NULL DEFAULT '',
					email      text,
					phone      text,
					mobile     text,
					title      text,
					company_id uuid REFERENCES crm_companies (id) ON DELETE SET NULL,
					notes      text,
					tags       text[] NOT NULL DEFAULT '{}',
					owner_id   uuid REFERENCES users (id) ON DELETE SET NULL,
					created_at timestamptz NOT NULL DEFAULT now(),
					updated_at timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS crm_contacts_company_id_idx ON crm_contacts (company_id)`,
			},
		},
		{
			Version: 5,
			Name:    "create_crm_leads",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS crm_leads (
					id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					title       text NOT NULL,
					status      text NOT NULL DEFAULT 'new'
					            CHECK (status IN ('new', 'contacted', 'qualified', 'won', 'lost')),
					source      text,
					value       numeric(14, 2),
					contact_id  uuid REFERENCES crm_contacts (id) ON DELETE SET NULL,
					company_id  uuid REFERENCES crm_companies (id) ON DELETE SET NULL,
					assigned_to uuid REFERENCES users (id) ON DELETE SET NULL,
					notes       text,
					tags        text[] NOT NULL DEFAULT '{}',
					created_at  timestamptz NOT NULL DEFAULT now(),
					updated_at  timestamptz NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			Version: 6,
			Name:    "create_crm_activity",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS crm_communications (
					id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					type        text NOT NULL CHECK (type IN ('email', 'call', 'meeting', 'note')),
					subject     text,
					content     text,
					contact_id  uuid REFERENCES crm_contacts (id) ON DELETE CASCADE,
					company_id  uuid REFERENCES crm_companies (id) ON DELETE CASCADE,
					user_id     uuid REFERENCES users (id) ON DELETE SET NULL,
					occurred_at timestamptz NOT NULL DEFAULT now(),
					created_at  timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS crm_communications_contact_id_idx ON crm_communications (contact_id, occurred_at DESC)`,
				`CREATE TABLE IF NOT EXISTS crm_tasks (
					id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					title        text NOT NULL,
					description  text,
					status       text NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'completed')),
					priority     text NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
					due_date     timestamptz,
					contact_id   uuid REFERENCES crm_contacts (id) ON DELETE CASCADE,
					company_id   uuid REFERENCES crm_companies (id) ON DELETE CASCADE,
					assigned_to  uuid REFERENCES users (id) ON DELETE SET NULL,
					completed_at timestamptz,
					created_at   timestamptz NOT NULL DEFAULT now(),
					updated_at   timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS crm_tasks_contact_id_idx ON crm_tasks (contact_id)`,
				`CREATE TABLE IF NOT EXISTS crm_documents (
					id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					name       text NOT NULL,
					url        text NOT NULL,
					contact_id uuid REFERENCES crm_contacts (id) ON DELETE CASCADE,
					company_id uuid REFERENCES crm_companies (id) ON DELETE CASCADE,
					created_at timestamptz NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			Version: 7,
			Name:    "create_microsoft_integration",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS microsoft_documents (
					id               uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					file_name        text NOT NULL,
					file_type        text NOT NULL DEFAULT '',
					file_size        bigint NOT NULL DEFAULT 0,
					external_file_id text NOT NULL,
					external_url     text NOT NULL DEFAULT '',
					share_url        text,
					site_id          text NOT NULL,
					folder_path      text NOT NULL,
					uploaded_by      uuid REFERENCES users (id) ON DELETE SET NULL,
					contact_id       uuid REFERENCES crm_contacts (id) ON DELETE CASCADE,
					company_id       uuid REFERENCES crm_companies (id) ON DELETE CASCADE,
					created_at       timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS microsoft_documents_contact_id_idx ON microsoft_documents (contact_id)`,
				`CREATE TABLE IF NOT EXISTS microsoft_email_history (
					id                   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id              uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
					direction            text NOT NULL CHECK (direction IN ('sent', 'received')),
					microsoft_message_id text,
					subject              text NOT NULL DEFAULT '',
					body                 text NOT NULL DEFAULT '',
					is_html              boolean NOT NULL DEFAULT false,
					sender               text NOT NULL DEFAULT '',
					to_recipients        text[] NOT NULL DEFAULT '{}',
					cc_recipients        text[] NOT NULL DEFAULT '{}',
					bcc_recipients       text[] NOT NULL DEFAULT '{}',
					contact_id           uuid REFERENCES crm_contacts (id) ON DELETE SET NULL,
					created_at           timestamptz NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS microsoft_email_history_user_idx ON microsoft_email_history (user_id, created_at DESC)`,
				`CREATE TABLE IF NOT EXISTS microsoft_integration_settings (
					user_id              uuid PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
					record_email_history boolean NOT NULL DEFAULT true,
					email_signature      text,
					updated_at           timestamptz NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			Version: 8,
			Name:    "create_crm_contact_summary",
			Statements: []string{
				`CREATE OR REPLACE VIEW crm_contact_summary AS
				SELECT c.id, c.first_name, c.last_name, c.email, c.phone, c.mobile, c.title, c.company_id,
				       c.notes, c.tags, c.owner_id, c.created_at, c.updated_at,
				       co.name AS company_name,
				       (SELECT count(*) FROM microsoft_documents d WHERE d.contact_id = c.id)
				         + (SELECT count(*) FROM crm_documents d WHERE d.contact_id = c.id) AS document_count,
				       (SELECT count(*) FROM crm_communications m WHERE m.contact_id = c.id) AS communication_count,
				       (SELECT count(*) FROM crm_tasks t WHERE t.contact_id = c.id AND t.status = 'open') AS open_task_count
				FROM crm_contacts c
				LEFT JOIN crm_companies co ON co.id = c.company_id`,
			},
		},
	}
}
