package classify

import "strings"

// Device is a coarse device family inferred from free text.
type Device string

const (
	DeviceUnknown  Device = ""
	DeviceNotebook Device = "notebook"
	DeviceDesktop  Device = "desktop"
	DeviceRouter   Device = "router"
	DevicePrinter  Device = "printer"
	DeviceTVStick  Device = "tv_stick"
	DevicePhone    Device = "phone"
)

// Need distinguishes "something is broken" from "teach me how to do X".
type Need string

const (
	NeedUnknown Need = ""
	NeedAssist  Need = "assist"
	NeedHowto   Need = "howto"
)

// Problem is the coarse remediation category used to key local fallback steps.
type Problem string

const (
	ProblemNoPower    Problem = "no_power"
	ProblemNoNetwork  Problem = "no_network"
	ProblemSlow       Problem = "slow"
	ProblemDisplay    Problem = "display"
	ProblemPeripheral Problem = "peripheral"
	ProblemOther      Problem = "other"
)

// Result is the classifier verdict for one piece of free text.
type Result struct {
	Device           Device
	DeviceConfidence float64
	Need             Need
	Problem          Problem
	Ambiguous        bool
}

// Keyword tables. Users write in Spanish (Rioplatense included) or English, so
// both vocabularies are listed. Matching is lowercase substring over the
// normalized text.
var deviceKeywords = map[Device][]string{
	DeviceNotebook: {"notebook", "laptop", "portatil", "portátil", "netbook"},
	DeviceDesktop:  {"desktop", "pc de escritorio", "computadora de escritorio", "torre", "gabinete", "compu", "computadora", "ordenador"},
	DeviceRouter:   {"router", "modem", "módem", "mikrotik", "microtik", "wifi", "access point", "wan"},
	DevicePrinter:  {"impresora", "printer", "multifuncion", "multifunción", "escaner", "escáner", "scanner"},
	DeviceTVStick:  {"stick tv", "tv stick", "fire stick", "firestick", "chromecast", "smart tv", "android tv"},
	DevicePhone:    {"celular", "telefono", "teléfono", "phone", "movil", "móvil", "tablet", "iphone", "android"},
}

// "compu"/"computadora"/"ordenador" is genuinely ambiguous between notebook and
// desktop; they score weakly so a single generic word stays below threshold.
var weakDeviceKeywords = map[string]bool{
	"compu":       true,
	"computadora": true,
	"ordenador":   true,
	"wifi":        true,
}

var howtoKeywords = []string{
	"como ", "cómo ", "how to", "how do i", "instalar", "install", "configurar",
	"configure", "conectar ", "set up", "setup", "tutorial", "pasos para",
	"quiero aprender", "necesito hacer",
}

var assistKeywords = []string{
	"no enciende", "no prende", "no funciona", "no anda", "problema", "falla",
	"error", "roto", "rota", "se apaga", "se cuelga", "se tilda", "no imprime", "broken",
	"doesn't work", "does not work", "won't", "wont", "not working", "issue",
	"ayuda", "help",
}

var problemKeywords = map[Problem][]string{
	ProblemNoPower: {
		"no enciende", "no prende", "no arranca", "no da imagen al encender",
		"won't power", "wont power", "won't turn on", "wont turn on", "no power",
		"doesn't boot", "no bootea", "se apaga sola", "se apaga solo",
	},
	ProblemNoNetwork: {
		"sin internet", "no tengo internet", "no hay internet", "no conecta",
		"no se conecta", "sin conexion", "sin conexión", "wifi no", "no network",
		"no internet", "can't connect", "cant connect", "se corta internet", "wan",
	},
	ProblemSlow: {
		"lenta", "lento", "lentisima", "lentísima", "tarda mucho", "anda lerdo",
		"slow", "lag", "se tilda", "se traba", "se cuelga", "freez",
	},
	ProblemDisplay: {
		"pantalla", "no da imagen", "imagen", "monitor", "screen", "display",
		"rayas en la pantalla", "pixel", "parpadea",
	},
	ProblemPeripheral: {
		"teclado", "mouse", "raton", "ratón", "keyboard", "usb", "auricular",
		"parlante", "microfono", "micrófono", "camara", "cámara", "webcam",
		"no imprime", "atasco de papel", "paper jam",
	},
}

// Classify infers device, need and problem category from free text. It is a
// pure function; thresholding of DeviceConfidence is the caller's business.
func Classify(freeText string) Result {
	text := normalize(freeText)

	res := Result{Problem: ProblemOther}
	if text == "" {
		res.Ambiguous = true
		return res
	}

	res.Device, res.DeviceConfidence = classifyDevice(text)
	res.Need = classifyNeed(text)
	res.Problem = classifyProblem(text)

	res.Ambiguous = res.Device == DeviceUnknown || res.DeviceConfidence < 0.5 || res.Need == NeedUnknown
	return res
}

func classifyDevice(text string) (Device, float64) {
	bestDevice := DeviceUnknown
	bestScore := 0.0

	for device, words := range deviceKeywords {
		score := 0.0
		for _, w := range words {
			if !strings.Contains(text, w) {
				continue
			}
			if weakDeviceKeywords[w] {
				score += 0.4
			} else {
				score += 1.0
			}
		}
		if score > bestScore {
			bestScore = score
			bestDevice = device
		}
	}

	if bestDevice == DeviceUnknown {
		return DeviceUnknown, 0
	}

	confidence := bestScore / (bestScore + 0.5)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return bestDevice, confidence
}

func classifyNeed(text string) Need {
	howto := containsAny(text, howtoKeywords)
	assist := containsAny(text, assistKeywords)

	switch {
	case assist && !howto:
		return NeedAssist
	case howto && !assist:
		return NeedHowto
	case assist && howto:
		// "ayuda para instalar..." reads as a how-to with a polite preamble.
		return NeedHowto
	default:
		return NeedUnknown
	}
}

func classifyProblem(text string) Problem {
	// First match in declaration priority order: power issues dominate, a dead
	// machine also "has no internet".
	order := []Problem{ProblemNoPower, ProblemNoNetwork, ProblemSlow, ProblemDisplay, ProblemPeripheral}
	for _, p := range order {
		if containsAny(text, problemKeywords[p]) {
			return p
		}
	}
	return ProblemOther
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
