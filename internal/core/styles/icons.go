package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconGithub  = " "
	IconBrain   = " "
	IconRequest = ""
)

// File operation icons
var (
	IconFileRead    = "" //
	IconFileCreate  = "" //
	IconFileEdit    = "" //
	IconFileDelete  = "" //
	IconFileSkipped = "" //
	IconFileFailed  = "" //
)

// Build status icons
var (
	IconBuildRunning = "" //
	IconBuildSuccess = "" //
	IconBuildFailure = "" //
)
