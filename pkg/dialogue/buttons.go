package dialogue

// Button ids are stable wire tokens: clients send them back verbatim in the
// buttonId field of the next turn. Labels are presentation only and localized.
const (
	BtnLangEsAR = "BTN_LANG_ES_AR"
	BtnLangEsES = "BTN_LANG_ES_ES"
	BtnLangEn   = "BTN_LANG_EN"

	BtnNoName = "BTN_NO_NAME"

	BtnHelp = "BTN_HELP" // something is broken
	BtnTask = "BTN_TASK" // teach me how to do X

	BtnYes = "BTN_YES"
	BtnNo  = "BTN_NO"

	BtnTestsDone = "BTN_TESTS_DONE" // did everything, still broken
	BtnTestsFail = "BTN_TESTS_FAIL" // could not complete the steps
	BtnSolved    = "BTN_SOLVED"

	// BtnNewTopic is the only way to jump backward in the flow. Free text
	// never resets the stage.
	BtnNewTopic = "BTN_NEW_TOPIC"
)

// Button is one quick-reply option shown under a bot message.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var buttonLabels = map[string]map[string]string{
	BtnLangEsAR: {"es-AR": "Español (Argentina)", "es-ES": "Español (Argentina)", "en": "Español (Argentina)"},
	BtnLangEsES: {"es-AR": "Español (España)", "es-ES": "Español (España)", "en": "Español (España)"},
	BtnLangEn:   {"es-AR": "English", "es-ES": "English", "en": "English"},

	BtnNoName: {"es-AR": "Prefiero no decirlo", "es-ES": "Prefiero no decirlo", "en": "I'd rather not say"},

	BtnHelp: {"es-AR": "Tengo un problema", "es-ES": "Tengo un problema", "en": "Something is broken"},
	BtnTask: {"es-AR": "Quiero aprender a hacer algo", "es-ES": "Quiero aprender a hacer algo", "en": "Teach me how to do something"},

	BtnYes: {"es-AR": "Sí", "es-ES": "Sí", "en": "Yes"},
	BtnNo:  {"es-AR": "No", "es-ES": "No", "en": "No"},

	BtnTestsDone: {"es-AR": "Hice todo y sigue igual", "es-ES": "Lo he hecho todo y sigue igual", "en": "I did everything, still broken"},
	BtnTestsFail: {"es-AR": "No pude hacer los pasos", "es-ES": "No he podido hacer los pasos", "en": "I couldn't do the steps"},
	BtnSolved:    {"es-AR": "¡Se solucionó!", "es-ES": "¡Solucionado!", "en": "It's fixed!"},

	BtnNewTopic: {"es-AR": "Consultar por otro tema", "es-ES": "Consultar por otro tema", "en": "Ask about something else"},
}

func makeButtons(locale string, ids ...string) []Button {
	lang := localeKey(locale)
	out := make([]Button, 0, len(ids))
	for _, id := range ids {
		label := buttonLabels[id][lang]
		if label == "" {
			label = buttonLabels[id]["es-AR"]
		}
		out = append(out, Button{ID: id, Label: label})
	}
	return out
}

func languageButtons() []Button {
	return makeButtons("es-AR", BtnLangEsAR, BtnLangEsES, BtnLangEn)
}
