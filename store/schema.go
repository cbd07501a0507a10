package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS production_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	machine_name TEXT NOT NULL,
	coil_number TEXT NOT NULL,
	cups_produced INTEGER NOT NULL,
	consumption_type TEXT,
	shift TEXT NOT NULL,
	production_date TEXT NOT NULL DEFAULT '',
	counter_value INTEGER NOT NULL DEFAULT 0,
	interval_start TEXT NOT NULL DEFAULT '',
	interval_end TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS coil_consumption_lots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	machine_name TEXT NOT NULL,
	coil_id TEXT NOT NULL UNIQUE,
	lot_number TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	consumed_quantity INTEGER NOT NULL,
	unit TEXT NOT NULL DEFAULT 'cups',
	production_date TEXT NOT NULL,
	shift TEXT NOT NULL,
	consumption_type TEXT NOT NULL,
	coil_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS current_production (
	machine_name TEXT PRIMARY KEY,
	current_cups INTEGER NOT NULL DEFAULT 0,
	daily_total INTEGER NOT NULL DEFAULT 0,
	shift TEXT NOT NULL DEFAULT '',
	coil_number TEXT NOT NULL DEFAULT '',
	feed_value REAL NOT NULL DEFAULT 0,
	size TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	connected INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS lot_config (
	machine_name TEXT PRIMARY KEY,
	current_lot TEXT NOT NULL DEFAULT '',
	coil_type TEXT NOT NULL DEFAULT '',
	outgoing_lot TEXT NOT NULL DEFAULT '',
	outgoing_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS email_recipients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS adjustments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	machine_name TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	reason TEXT NOT NULL,
	actor TEXT NOT NULL,
	production_date TEXT NOT NULL,
	shift TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic TEXT NOT NULL,
	payload BLOB NOT NULL,
	kind TEXT NOT NULL,
	machine_name TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT '',
	sent_at TEXT
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS production_records (
	id BIGSERIAL PRIMARY KEY,
	timestamp TEXT NOT NULL,
	machine_name TEXT NOT NULL,
	coil_number TEXT NOT NULL,
	cups_produced BIGINT NOT NULL,
	consumption_type TEXT,
	shift TEXT NOT NULL,
	production_date TEXT NOT NULL DEFAULT '',
	counter_value BIGINT NOT NULL DEFAULT 0,
	interval_start TEXT NOT NULL DEFAULT '',
	interval_end TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS coil_consumption_lots (
	id BIGSERIAL PRIMARY KEY,
	machine_name TEXT NOT NULL,
	coil_id TEXT NOT NULL UNIQUE,
	lot_number TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	consumed_quantity BIGINT NOT NULL,
	unit TEXT NOT NULL DEFAULT 'cups',
	production_date TEXT NOT NULL,
	shift TEXT NOT NULL,
	consumption_type TEXT NOT NULL,
	coil_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS current_production (
	machine_name TEXT PRIMARY KEY,
	current_cups BIGINT NOT NULL DEFAULT 0,
	daily_total BIGINT NOT NULL DEFAULT 0,
	shift TEXT NOT NULL DEFAULT '',
	coil_number TEXT NOT NULL DEFAULT '',
	feed_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	size TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	connected INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS lot_config (
	machine_name TEXT PRIMARY KEY,
	current_lot TEXT NOT NULL DEFAULT '',
	coil_type TEXT NOT NULL DEFAULT '',
	outgoing_lot TEXT NOT NULL DEFAULT '',
	outgoing_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS email_recipients (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS adjustments (
	id BIGSERIAL PRIMARY KEY,
	machine_name TEXT NOT NULL,
	quantity BIGINT NOT NULL,
	reason TEXT NOT NULL,
	actor TEXT NOT NULL,
	production_date TEXT NOT NULL,
	shift TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id BIGSERIAL PRIMARY KEY,
	topic TEXT NOT NULL,
	payload BYTEA NOT NULL,
	kind TEXT NOT NULL,
	machine_name TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT '',
	sent_at TEXT
);
`

// schemaIndexes is applied after the column migrations: an index may cover a
// column an old database only gains during migration. Both dialects accept
// the same DDL.
const schemaIndexes = `
CREATE INDEX IF NOT EXISTS idx_production_records_machine ON production_records(machine_name);
CREATE INDEX IF NOT EXISTS idx_production_records_date ON production_records(production_date);
CREATE INDEX IF NOT EXISTS idx_coil_lots_machine ON coil_consumption_lots(machine_name);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;
`

// columnMigrations lists columns added after the tables first shipped. Older
// databases pick them up on open, or on the fly when a write trips over one.
var columnMigrations = []struct {
	table      string
	column     string
	definition string
}{
	{"production_records", "production_date", "TEXT NOT NULL DEFAULT ''"},
	{"production_records", "counter_value", "BIGINT NOT NULL DEFAULT 0"},
	{"production_records", "interval_start", "TEXT NOT NULL DEFAULT ''"},
	{"production_records", "interval_end", "TEXT NOT NULL DEFAULT ''"},
	{"coil_consumption_lots", "coil_type", "TEXT NOT NULL DEFAULT ''"},
	{"current_production", "daily_total", "BIGINT NOT NULL DEFAULT 0"},
	{"current_production", "connected", "INTEGER NOT NULL DEFAULT 0"},
	{"lot_config", "coil_type", "TEXT NOT NULL DEFAULT ''"},
}
