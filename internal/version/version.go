package version

// Version is the application version. Override via ldflags:
//
//	go build -ldflags "-X hubdeck/internal/version.Version=1.2.3"
var Version = "0.1.0"
