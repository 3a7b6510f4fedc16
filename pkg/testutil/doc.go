// Package testutil provides utilities for testing pushdeploy components.
//
// Key components:
//   - TestEnvironment: an isolated deployment base in a temp directory,
//     with helpers to lay down unit directories and symlinks
//   - FakeRunner: records commands instead of running them
//   - MockManager, MockCheckouter: testify mocks for collaborators
//
// All test data should be defined inline, not in external files.
package testutil
