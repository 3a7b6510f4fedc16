// Package paths owns the on-disk layout of a deployment base.
//
// A deployment base is any directory holding a bare repository named
// repo.git. Everything pushdeploy writes lives below it:
//
//	<base>/repo.git/                  bare repository receiving pushes
//	<base>/versions/<commit>/work/    one checked-out tree per deployed commit
//	<base>/current                    symlink to versions/<commit>
//	<base>/.pushdeploy.lock           serializes deployments
//	<base>/deployments.db             deployment history
//
// Nothing outside this package should join these names by hand.
package paths
