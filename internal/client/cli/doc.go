// Package cli implements the interactive VeilChat client: a REPL over the
// service controllers, interactive prompts for codes and passwords, and the
// disguise screens shown while duress mode is active.
package cli
