// Package cmd implements the filevault command line, one file per command.
//
// Commands print user-facing results to stdout and return errors to main,
// which reports them through HandleError. Passphrases for encrypted files
// come from FILEVAULT_PASSWORD, the OS keyring, or a terminal prompt.
package cmd
