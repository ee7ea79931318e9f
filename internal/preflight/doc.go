// Package preflight provides readiness checks for the filesystem, scheduler
// tools and catalogue that xia2pipe depends on.
//
// The CLI "x2p check" command runs RunAll and prints each Result. The
// individual checks are also usable on their own; CheckDirectoryAccess is
// reused by the daemon before it takes the instance lock.
package preflight
