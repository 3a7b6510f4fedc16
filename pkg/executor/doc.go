// Package executor runs external programs on behalf of pushdeploy.
//
// git, systemctl and build hooks are all started through a Runner, which
// captures their output, enforces timeouts and reports exit codes in a
// uniform way. Tests substitute a fake Runner to observe the exact
// command lines without touching the host.
package executor
