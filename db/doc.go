// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connecting

Open supports SQLite (modernc.org/sqlite, pure Go) and PostgreSQL (lib/pq):

	conn, err := db.Open(db.TypeSQLite, "quickpoll.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite connections get busy_timeout, WAL and foreign_keys pragmas and are
limited to one open connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
Queries elsewhere use $N placeholders, which both drivers accept.

# Tables

  - poll: question, created_at, expires_at, optional hide_until_vote_secret
  - poll_option: ordered options per poll
  - vote: one vote per (poll_id, voter_identity)

# Relationships

	poll 1──* poll_option
	poll 1──* vote
	poll_option 1──* vote

All foreign keys use ON DELETE CASCADE.
*/
package db
