package steps

import (
	"strings"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

// Local fallback step lists keyed by coarse problem category. These are what
// the user gets when the AI gateway is down, slow, or returns garbage: always
// a usable list, never an error.

type fallbackKey struct {
	problem classify.Problem
	tier    session.Tier
	lang    string // "es" or "en"
}

var fallbackSteps = map[fallbackKey][]string{
	{classify.ProblemNoPower, session.TierBasic, "es"}: {
		"Verificá que el cable de alimentación esté firme en el equipo y en el enchufe.",
		"Probá el enchufe con otro aparato para descartar un problema eléctrico.",
		"Mantené presionado el botón de encendido durante 10 segundos y soltalo.",
		"Si es una notebook, quitá la batería (si es extraíble) y conectala solo con el cargador.",
	},
	{classify.ProblemNoPower, session.TierAdvanced, "es"}: {
		"Desconectá todos los periféricos (USB, monitores, impresoras) y probá encender.",
		"Escuchá si hay pitidos o mirá si algún LED parpadea al presionar encendido.",
		"Si hay luz pero no imagen, conectá un monitor externo para descartar la pantalla.",
		"Probá con otro cargador o fuente del mismo voltaje si tenés uno a mano.",
	},
	{classify.ProblemNoNetwork, session.TierBasic, "es"}: {
		"Reiniciá el módem y el router: desenchufalos 30 segundos y volvé a enchufarlos.",
		"Verificá que las luces del router queden fijas (no parpadeando en rojo).",
		"Olvidá la red WiFi en tu dispositivo y volvé a conectarte con la contraseña.",
		"Probá con otro dispositivo para saber si el problema es de la red o del equipo.",
	},
	{classify.ProblemNoNetwork, session.TierAdvanced, "es"}: {
		"Conectá el equipo por cable de red directo al router y probá la conexión.",
		"Ejecutá un ping a 8.8.8.8 para distinguir un corte de internet de un problema de DNS.",
		"Revisá que el equipo no tenga una IP fija mal configurada (dejalo en automático/DHCP).",
		"Si usás un router propio, verificá los datos de la conexión WAN con tu proveedor.",
	},
	{classify.ProblemSlow, session.TierBasic, "es"}: {
		"Reiniciá el equipo y probá si mejora.",
		"Cerrá los programas que no estés usando, especialmente el navegador con muchas pestañas.",
		"Verificá el espacio libre en disco: debería quedar al menos un 15% libre.",
	},
	{classify.ProblemSlow, session.TierAdvanced, "es"}: {
		"Abrí el administrador de tareas e identificá qué proceso consume CPU o memoria.",
		"Deshabilitá los programas que arrancan con el sistema y no necesités.",
		"Ejecutá un análisis de malware completo.",
		"Si el disco es mecánico (HDD), considerá que puede estar fallando: revisá su estado SMART.",
	},
	{classify.ProblemDisplay, session.TierBasic, "es"}: {
		"Verificá que el cable de video esté firme en ambos extremos.",
		"Subí el brillo al máximo: una pantalla muy oscura parece apagada.",
		"Conectá un monitor o TV externo para descartar la pantalla del equipo.",
	},
	{classify.ProblemDisplay, session.TierAdvanced, "es"}: {
		"Probá con otro cable de video (HDMI/DisplayPort) si tenés uno.",
		"Iluminá la pantalla con una linterna: si se ve una imagen tenue, falló la retroiluminación.",
		"Arrancá en modo seguro para descartar un problema del controlador de video.",
	},
	{classify.ProblemPeripheral, session.TierBasic, "es"}: {
		"Desconectá y volvé a conectar el dispositivo, probando otro puerto USB.",
		"Si es inalámbrico, cambiá las pilas o cargalo, y volvé a emparejarlo.",
		"Probá el dispositivo en otro equipo para saber si el problema es del periférico.",
	},
	{classify.ProblemPeripheral, session.TierAdvanced, "es"}: {
		"Desinstalá el dispositivo del administrador de dispositivos y reiniciá para reinstalarlo.",
		"Si es una impresora, cancelá todos los trabajos de la cola y reiniciala.",
		"Buscá e instalá el controlador más reciente del fabricante.",
	},
	{classify.ProblemOther, session.TierBasic, "es"}: {
		"Reiniciá el equipo y verificá si el problema persiste.",
		"Anotá el texto exacto de cualquier mensaje de error que aparezca.",
		"Probá reproducir el problema y fijate si ocurre siempre o de forma intermitente.",
	},
	{classify.ProblemOther, session.TierAdvanced, "es"}: {
		"Verificá si hay actualizaciones pendientes del sistema e instalalas.",
		"Probá con otro usuario del sistema para descartar un problema del perfil.",
		"Revisá el visor de eventos o los registros del sistema cercanos a la hora del fallo.",
	},

	{classify.ProblemNoPower, session.TierBasic, "en"}: {
		"Check that the power cable is firmly seated at the device and the outlet.",
		"Try the outlet with another appliance to rule out an electrical problem.",
		"Hold the power button for 10 seconds, then release and press it again.",
		"On a laptop, remove the battery (if removable) and run from the charger alone.",
	},
	{classify.ProblemNoPower, session.TierAdvanced, "en"}: {
		"Disconnect all peripherals (USB, monitors, printers) and try powering on.",
		"Listen for beeps and watch for blinking LEDs when pressing power.",
		"If there is power but no picture, attach an external monitor to rule out the screen.",
		"Try another charger or power supply of the same rating if available.",
	},
	{classify.ProblemNoNetwork, session.TierBasic, "en"}: {
		"Restart your modem and router: unplug them for 30 seconds, then plug back in.",
		"Check that the router lights settle solid (not blinking red).",
		"Forget the WiFi network on your device and reconnect with the password.",
		"Test with another device to tell a network problem from a device problem.",
	},
	{classify.ProblemNoNetwork, session.TierAdvanced, "en"}: {
		"Connect the device to the router with an ethernet cable and test.",
		"Ping 8.8.8.8 to distinguish an internet outage from a DNS problem.",
		"Make sure the device is not using a stale static IP (set it back to DHCP).",
		"If you run your own router, verify the WAN settings with your provider.",
	},
	{classify.ProblemSlow, session.TierBasic, "en"}: {
		"Restart the device and check whether it improves.",
		"Close programs you are not using, especially a browser with many tabs.",
		"Check free disk space: at least 15% should remain free.",
	},
	{classify.ProblemSlow, session.TierAdvanced, "en"}: {
		"Open the task manager and identify which process is consuming CPU or memory.",
		"Disable startup programs you do not need.",
		"Run a full malware scan.",
		"If the disk is mechanical (HDD), it may be failing: check its SMART status.",
	},
	{classify.ProblemDisplay, session.TierBasic, "en"}: {
		"Check that the video cable is firmly attached at both ends.",
		"Turn the brightness all the way up: a very dim screen looks dead.",
		"Connect an external monitor or TV to rule out the built-in screen.",
	},
	{classify.ProblemDisplay, session.TierAdvanced, "en"}: {
		"Try a different video cable (HDMI/DisplayPort) if you have one.",
		"Shine a flashlight at the screen: a faint image means the backlight failed.",
		"Boot into safe mode to rule out a display driver problem.",
	},
	{classify.ProblemPeripheral, session.TierBasic, "en"}: {
		"Unplug and replug the device, trying a different USB port.",
		"If wireless, replace the batteries or charge it, then pair it again.",
		"Try the device on another computer to see whether the peripheral itself failed.",
	},
	{classify.ProblemPeripheral, session.TierAdvanced, "en"}: {
		"Uninstall the device from the device manager and reboot to reinstall it.",
		"For printers, cancel every job in the queue and restart the printer.",
		"Download and install the latest driver from the manufacturer.",
	},
	{classify.ProblemOther, session.TierBasic, "en"}: {
		"Restart the device and check whether the problem persists.",
		"Write down the exact text of any error message.",
		"Try to reproduce the problem and note whether it is constant or intermittent.",
	},
	{classify.ProblemOther, session.TierAdvanced, "en"}: {
		"Install any pending system updates.",
		"Try another user account to rule out a corrupted profile.",
		"Check the system event logs around the time of the failure.",
	},
}

// localFallback returns the deterministic step list for a problem category.
// It never returns an empty list.
func localFallback(tier session.Tier, problem classify.Problem, locale string) []session.DiagnosticStep {
	lang := "es"
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		lang = "en"
	}

	texts, ok := fallbackSteps[fallbackKey{problem, tier, lang}]
	if !ok {
		texts = fallbackSteps[fallbackKey{classify.ProblemOther, tier, lang}]
	}

	return buildSteps(tier, texts)
}

func buildSteps(tier session.Tier, texts []string) []session.DiagnosticStep {
	out := make([]session.DiagnosticStep, len(texts))
	for i, text := range texts {
		out[i] = session.DiagnosticStep{
			Index:       i + 1,
			Description: text,
			Tier:        tier,
			Status:      session.StepPending,
		}
	}
	return out
}
