package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tables (
		id         uuid PRIMARY KEY,
		number     text NOT NULL UNIQUE,
		status     text NOT NULL,
		capacity   integer NOT NULL DEFAULT 0,
		sort       integer NOT NULL DEFAULT 0,
		order_id   uuid,
		created_at timestamptz NOT NULL,
		created_by text NOT NULL DEFAULT '',
		updated_at timestamptz NOT NULL,
		updated_by text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS tables_status_idx ON tables (status)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               uuid PRIMARY KEY,
		number           text NOT NULL UNIQUE,
		user_id          uuid NOT NULL,
		status           text NOT NULL,
		pay_status       text NOT NULL,
		dining_type      text NOT NULL,
		table_id         uuid,
		table_number     text NOT NULL DEFAULT '',
		address_id       uuid,
		consignee        text NOT NULL DEFAULT '',
		phone            text NOT NULL DEFAULT '',
		address          text NOT NULL DEFAULT '',
		items            jsonb NOT NULL,
		pack_amount      numeric(12,2) NOT NULL,
		amount           numeric(12,2) NOT NULL,
		remark           text NOT NULL DEFAULT '',
		cancel_reason    text NOT NULL DEFAULT '',
		rejection_reason text NOT NULL DEFAULT '',
		order_time       timestamptz NOT NULL,
		checkout_time    timestamptz,
		cancel_time      timestamptz,
		delivery_time    timestamptz,
		created_at       timestamptz NOT NULL,
		created_by       text NOT NULL DEFAULT '',
		updated_at       timestamptz NOT NULL,
		updated_by       text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS orders_table_status_idx ON orders (table_id, status)`,
	`CREATE INDEX IF NOT EXISTS orders_user_status_idx ON orders (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS orders_order_time_idx ON orders (order_time DESC)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id    uuid NOT NULL,
		name       text NOT NULL,
		unit_price numeric(12,2) NOT NULL,
		quantity   integer NOT NULL,
		added_at   timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, name, unit_price)
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id         uuid PRIMARY KEY,
		user_id    uuid NOT NULL,
		consignee  text NOT NULL,
		phone      text NOT NULL,
		detail     text NOT NULL,
		label      text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS addresses_user_idx ON addresses (user_id)`,
}
