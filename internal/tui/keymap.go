package tui

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyQuitUpper   = "Q"
	KeyCtrlC       = "ctrl+c"
	KeySpace       = " "
	KeyLeft        = "left"
	KeyRight       = "right"
	KeyPrevChapter = "["
	KeyNextChapter = "]"
	KeyCycleVoice  = "v"
	KeyRateUp      = "+"
	KeyRateUpAlt   = "="
	KeyRateDown    = "-"
)
