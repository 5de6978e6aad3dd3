package dialogue

import (
	"fmt"
	"strings"
)

// Reply templates keyed by message id and language. The greeting is the one
// message shown before a locale exists, so it is trilingual by construction.

const greetingText = "¡Hola! Soy el asistente de soporte técnico de STI Rosario.\n" +
	"Hi! I'm the STI Rosario tech support assistant.\n" +
	"¿En qué idioma preferís que hablemos? / Which language do you prefer?"

var replyTemplates = map[string]map[string]string{
	"ask_name": {
		"es-AR": "¡Perfecto! ¿Cómo te llamás?",
		"es-ES": "¡Perfecto! ¿Cómo te llamas?",
		"en":    "Great! What's your name?",
	},
	"ask_need": {
		"es-AR": "%s¿En qué te puedo ayudar hoy? Contame tu problema o elegí una opción.",
		"es-ES": "%s¿En qué te puedo ayudar hoy? Cuéntame tu problema o elige una opción.",
		"en":    "%sHow can I help you today? Describe your problem or pick an option.",
	},
	"ask_need_again": {
		"es-AR": "No me quedó claro. ¿Tenés un problema con un equipo, o querés aprender a hacer algo?",
		"es-ES": "No me ha quedado claro. ¿Tienes un problema con un equipo, o quieres aprender a hacer algo?",
		"en":    "I didn't quite get that. Is something broken, or do you want to learn how to do something?",
	},
	"ask_device": {
		"es-AR": "¿Con qué equipo es? (notebook, PC de escritorio, router, impresora, celular...)",
		"es-ES": "¿Con qué equipo es? (portátil, ordenador de sobremesa, router, impresora, móvil...)",
		"en":    "Which device is it? (laptop, desktop, router, printer, phone...)",
	},
	"confirm_device": {
		"es-AR": "Entiendo que el equipo es: %s. ¿Es correcto?",
		"es-ES": "Entiendo que el equipo es: %s. ¿Es correcto?",
		"en":    "I understand the device is: %s. Is that right?",
	},
	"ask_problem": {
		"es-AR": "Contame con un poco más de detalle qué está pasando.",
		"es-ES": "Cuéntame con un poco más de detalle qué está pasando.",
		"en":    "Tell me in a bit more detail what's going on.",
	},
	"present_howto": {
		"es-AR": "Estos son los pasos para hacerlo:\n%s\n¿Pudiste resolverlo?",
		"es-ES": "Estos son los pasos para hacerlo:\n%s\n¿Has podido resolverlo?",
		"en":    "Here are the steps:\n%s\nDid that solve it?",
	},
	"present_basic": {
		"es-AR": "Probemos primero con estos pasos básicos:\n%s\nContame cómo te fue.",
		"es-ES": "Probemos primero con estos pasos básicos:\n%s\nCuéntame cómo te ha ido.",
		"en":    "Let's start with these basic steps:\n%s\nLet me know how it goes.",
	},
	"present_advanced": {
		"es-AR": "Vamos con pruebas un poco más avanzadas:\n%s\nContame cómo te fue.",
		"es-ES": "Vamos con pruebas un poco más avanzadas:\n%s\nCuéntame cómo te ha ido.",
		"en":    "Let's try some more advanced checks:\n%s\nLet me know how it goes.",
	},
	"ask_outcome": {
		"es-AR": "¿Pudiste resolverlo? Elegí una opción.",
		"es-ES": "¿Has podido resolverlo? Elige una opción.",
		"en":    "Did that solve it? Pick an option.",
	},
	"solved_goodbye": {
		"es-AR": "¡Genial! Me alegro de que se haya solucionado. Si necesitás algo más, escribime cuando quieras.",
		"es-ES": "¡Genial! Me alegro de que se haya solucionado. Si necesitas algo más, escríbeme cuando quieras.",
		"en":    "Great! Glad it's fixed. If you need anything else, just write me anytime.",
	},
	"escalate_offer": {
		"es-AR": "No pudimos resolverlo por acá. ¿Querés que genere un ticket para que un técnico te contacte?",
		"es-ES": "No hemos podido resolverlo por aquí. ¿Quieres que genere un ticket para que un técnico te contacte?",
		"en":    "We couldn't solve it here. Want me to create a ticket so a technician contacts you?",
	},
	"ask_contact": {
		"es-AR": "Dejame un email o un teléfono para que el técnico te contacte.",
		"es-ES": "Déjame un email o un teléfono para que el técnico te contacte.",
		"en":    "Leave me an email or phone number so the technician can reach you.",
	},
	"ask_contact_again": {
		"es-AR": "No encontré un email ni un teléfono válido en tu mensaje. ¿Me lo pasás de nuevo?",
		"es-ES": "No he encontrado un email ni un teléfono válido en tu mensaje. ¿Me lo pasas de nuevo?",
		"en":    "I couldn't find a valid email or phone number in your message. Could you send it again?",
	},
	"ticket_created": {
		"es-AR": "Listo, generé el ticket %s. Un técnico va a revisarlo a la brevedad.\nTambién podés escribirnos directo por WhatsApp: %s",
		"es-ES": "Listo, he generado el ticket %s. Un técnico lo revisará en breve.\nTambién puedes escribirnos directamente por WhatsApp: %s",
		"en":    "Done, I created ticket %s. A technician will review it shortly.\nYou can also reach us directly on WhatsApp: %s",
	},
	"ended_goodbye": {
		"es-AR": "¡Gracias por escribirnos! Que tengas un buen día.",
		"es-ES": "¡Gracias por escribirnos! Que tengas un buen día.",
		"en":    "Thanks for reaching out! Have a great day.",
	},
	"session_over": {
		"es-AR": "Esta conversación ya terminó. Iniciá una nueva para hacer otra consulta.",
		"es-ES": "Esta conversación ya ha terminado. Inicia una nueva para hacer otra consulta.",
		"en":    "This conversation is over. Start a new one for another query.",
	},
	"new_topic": {
		"es-AR": "Dale, empecemos de nuevo. Contame qué está pasando.",
		"es-ES": "Vale, empecemos de nuevo. Cuéntame qué está pasando.",
		"en":    "Sure, let's start over. Tell me what's going on.",
	},
	"new_topic_rejected": {
		"es-AR": "Ya hay un ticket generado para esta conversación, no puedo cambiar de tema. Iniciá una nueva conversación.",
		"es-ES": "Ya hay un ticket generado para esta conversación, no puedo cambiar de tema. Inicia una nueva conversación.",
		"en":    "A ticket already exists for this conversation, so I can't switch topics. Please start a new conversation.",
	},
}

// reply renders a localized template. Unknown locales fall back to Rioplatense
// Spanish, the shop's home dialect.
func reply(locale, key string, args ...interface{}) string {
	lang := localeKey(locale)
	tmpl := replyTemplates[key][lang]
	if tmpl == "" {
		tmpl = replyTemplates[key]["es-AR"]
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func localeKey(locale string) string {
	switch strings.ToLower(locale) {
	case "es-es":
		return "es-ES"
	case "en", "en-us", "en-gb":
		return "en"
	default:
		return "es-AR"
	}
}

// greetingPrefix personalizes the first ask_need message when a name exists.
func greetingPrefix(locale, name string) string {
	if name == "" {
		return ""
	}
	switch localeKey(locale) {
	case "en":
		return fmt.Sprintf("Nice to meet you, %s! ", name)
	default:
		return fmt.Sprintf("¡Un gusto, %s! ", name)
	}
}

func formatSteps(stepLines []string) string {
	var b strings.Builder
	for i, line := range stepLines {
		fmt.Fprintf(&b, "%d. %s", i+1, line)
		if i < len(stepLines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
