// Package password implements one-way credential hashing with argon2id.
//
// Hashes are encoded as PHC strings ($argon2id$v=...$m=...,t=...,p=...$salt$hash)
// with a fresh random salt per call, so hashing the same secret twice yields
// different strings that both verify. Verification is constant-time in the
// digest comparison and never fails loudly: a malformed or foreign hash
// simply does not verify.
package password
