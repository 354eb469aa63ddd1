// Package password implements argon2id hashing for the reference credential directory.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash are unpadded standard base64; padded input is also accepted.
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters than the
// configured ones. This package never stores passwords and never logs them.
package password
