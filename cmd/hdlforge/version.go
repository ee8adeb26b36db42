package main

// versionString is stamped at release time via -ldflags.
var versionString = "dev"
