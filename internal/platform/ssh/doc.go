// Package ssh delivers command scripts to remote hosts and runs them.
//
// A [Transport] connects to the target, directly or through a jump host,
// retrying the first hop until it answers. Jump hosts are traversed natively:
// the inner connection is a channel opened through the jump host's SSH
// connection, so no private key ever leaves the local machine. The script is
// uploaded over SFTP, executed with elevated privileges and removed again.
package ssh
