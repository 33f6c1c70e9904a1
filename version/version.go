package version

// Version is the current release of femina360.
const Version = "0.1.0"
