// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier generation and voter identity utilities.

# Poll IDs

Poll IDs are 128 random bits, URL-safe base64 encoded without padding:

	id, err := auth.GeneratePollID()  // 22 characters

They are the only thing protecting a poll from enumeration, so they
must stay unguessable.

# Creator Secrets

Polls that hide results until vote get a UUIDv4 secret at creation:

	secret := auth.GenerateSecret()
	ok := auth.SecretMatches(provided, secret)

SecretMatches compares in constant time and never matches an empty secret.

# Voter Identity

Clients identify themselves with a fingerprint or an idempotency key.
Both are untrusted. The stored identity is an HMAC of the kind and value:

	identity, err := auth.HashIdentity(auth.KindFingerprint, fp, salt)

Equality of stored identities is exact string equality.

# ID Generation

Random hex IDs for option records:

	id, err := auth.GenerateID(8)  // 16 hex characters

Time-ordered ULIDs for votes and subscriptions:

	id, err := auth.NewULID(time.Now())
*/
package auth
