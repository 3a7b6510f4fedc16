// Package services works out which system services a deployment touches
// and drives the service manager that stops and starts them.
//
// A service is implicated when a symlink under one of the configured
// unit directories (or web server directories) points into the
// deployment base. Unit links contribute their own file name as the
// service id; web server links implicate the web server as a whole.
package services
