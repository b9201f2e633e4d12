package credstore

// schema is the SQLite DDL for the reference SQLStore implementation.
// Encrypted columns are stored as three sibling columns (ciphertext,
// salt, nonce) per spec §3's "Encrypted field triple".
const schema = `
CREATE TABLE IF NOT EXISTS api_tokens (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	token_prefix TEXT NOT NULL,
	token_hash TEXT NOT NULL,
	scopes TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_api_tokens_prefix ON api_tokens(token_prefix);
CREATE INDEX IF NOT EXISTS idx_api_tokens_user ON api_tokens(user_id);

CREATE TABLE IF NOT EXISTS api_model_aliases (
	id TEXT PRIMARY KEY,
	alias TEXT NOT NULL,
	api_format TEXT NOT NULL,
	base_url TEXT NOT NULL,
	models TEXT NOT NULL,
	prefix TEXT,
	api_key_ciphertext BLOB,
	api_key_salt BLOB,
	api_key_nonce BLOB
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_api_model_aliases_prefix ON api_model_aliases(prefix) WHERE prefix IS NOT NULL;

CREATE TABLE IF NOT EXISTS oauth_configs (
	id TEXT PRIMARY KEY,
	mcp_server_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	client_secret_ciphertext BLOB,
	client_secret_salt BLOB,
	client_secret_nonce BLOB,
	authorization_endpoint TEXT NOT NULL,
	token_endpoint TEXT NOT NULL,
	registration_endpoint TEXT,
	registration_access_token_ciphertext BLOB,
	registration_access_token_salt BLOB,
	registration_access_token_nonce BLOB,
	scopes TEXT NOT NULL,
	token_endpoint_auth_method TEXT NOT NULL,
	registration_type TEXT NOT NULL,
	client_id_issued_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oauth_configs_mcp_server ON oauth_configs(mcp_server_id);

CREATE TABLE IF NOT EXISTS oauth_tokens (
	id TEXT PRIMARY KEY,
	config_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	access_token_ciphertext BLOB NOT NULL,
	access_token_salt BLOB NOT NULL,
	access_token_nonce BLOB NOT NULL,
	refresh_token_ciphertext BLOB,
	refresh_token_salt BLOB,
	refresh_token_nonce BLOB,
	scopes_granted TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_oauth_tokens_config_user ON oauth_tokens(config_id, user_id);

CREATE TABLE IF NOT EXISTS app_reg_info (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	client_id TEXT NOT NULL,
	client_secret_ciphertext BLOB NOT NULL,
	client_secret_salt BLOB NOT NULL,
	client_secret_nonce BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS mcp_auth_headers (
	id TEXT PRIMARY KEY,
	mcp_server_id TEXT NOT NULL,
	name TEXT NOT NULL,
	value_ciphertext BLOB NOT NULL,
	value_salt BLOB NOT NULL,
	value_nonce BLOB NOT NULL
);
`
