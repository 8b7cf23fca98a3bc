// Package password provides argon2id hashing in PHC string format and the
// composition policy applied to new passwords.
package password
