// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package token generates the one-time verification codes mailed to backers.
package token

import "math/rand/v2"

// Alphabet is the set of characters codes are drawn from. Uppercase plus
// digits keeps codes copy-paste safe in chat clients.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IssueLength is the length of newly issued verification codes. At 36^40
// possible values no uniqueness check against outstanding codes is needed.
const IssueLength = 40

// New returns a random code of n characters from Alphabet. Codes prove
// control of a mailbox, not possession of a secret, so math/rand suffices.
func New(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}
