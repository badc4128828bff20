package translation

// builtin is the table compiled into the binary.
// State keys match window.State.Key(); position keys are the codes used in
// device.position.window.
var builtin = Table{
	"en": {
		States: map[string]string{
			"closed":  "closed",
			"opened":  "opened",
			"opening": "opening",
			"closing": "closing",
			"error":   "error",
		},
		Positions: map[string]string{
			"left":     "left",
			"right":    "right",
			"center":   "center",
			"single":   "single",
			"skylight": "skylight",
		},
	},
	"de": {
		States: map[string]string{
			"closed":  "geschlossen",
			"opened":  "geöffnet",
			"opening": "öffnet",
			"closing": "schließt",
			"error":   "Fehler",
		},
		Positions: map[string]string{
			"left":     "links",
			"right":    "rechts",
			"center":   "mitte",
			"single":   "einzeln",
			"skylight": "Dachfenster",
		},
	},
}
