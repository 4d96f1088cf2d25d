// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

main loads .env first, then parses flags:

	if err := cliparse.LoadDotEnv(); err != nil { ... }
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p               Server port
	-t               Database type (sqlite or postgres)
	-d               Database URL, or file path for sqlite
	--identity-salt  Voter identity HMAC salt
	--seed           Insert the sample poll

# Environment Variables

	PORT                → -p (default 3318)
	DATABASE_TYPE       → -t (default sqlite)
	DATABASE_URL        → -d (default quickpoll.db for sqlite)
	IDENTITY_SALT       → --identity-salt
	CORS_ORIGINS        comma separated allow-list
	DEFAULT_POLL_HOURS  poll lifetime when none is requested (24)
	MAX_POLL_HOURS      longest lifetime a creator may request (720)
	SUBSCRIBER_QUEUE    buffered tallies per live stream (16)
	LOG_LEVEL           debug, info, warn or error
	LOG_FORMAT          text or json

CLI flags take precedence over environment variables, and variables
already in the environment take precedence over .env.

# Validation

ParseFlags returns an error when IDENTITY_SALT is missing, when postgres
is selected without a DATABASE_URL, or when a numeric setting does not
parse or is out of range.
*/
package cliparse
