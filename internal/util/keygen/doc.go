// Package keygen generates key pairs for SSH authentication.
//
// Private keys are PEM encoded (PKCS#1 for RSA, OpenSSH for ed25519) and
// public keys use the OpenSSH authorized_keys format, ready to be installed
// on provisioned hosts and referenced by execution targets.
package keygen
