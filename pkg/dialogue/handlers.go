package dialogue

import (
	"context"
	"strings"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/steps"
)

func (o *Orchestrator) handleAskLanguage(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch in.ButtonID {
	case BtnLangEsAR:
		sess.Locale = "es-AR"
	case BtnLangEsES:
		sess.Locale = "es-ES"
	case BtnLangEn:
		sess.Locale = "en"
	default:
		lowered := strings.ToLower(in.Text)
		switch {
		case strings.Contains(lowered, "english") || lowered == "en":
			sess.Locale = "en"
		case strings.Contains(lowered, "españa") || strings.Contains(lowered, "espana"):
			sess.Locale = "es-ES"
		case strings.Contains(lowered, "español") || strings.Contains(lowered, "espanol") || strings.Contains(lowered, "castellano"):
			sess.Locale = "es-AR"
		default:
			out.Reply = greetingText
			out.Buttons = languageButtons()
			return nil
		}
	}

	if err := o.advance(sess, flow.StageAskName, out, reply(sess.Locale, "ask_name")); err != nil {
		return err
	}
	out.Buttons = makeButtons(sess.Locale, BtnNoName)
	return nil
}

func (o *Orchestrator) handleAskName(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch {
	case in.ButtonID == BtnNoName:
		sess.UserName = ""
	case strings.TrimSpace(in.Text) != "":
		sess.UserName = sanitizeName(in.Text)
	default:
		out.Reply = reply(sess.Locale, "ask_name")
		out.Buttons = makeButtons(sess.Locale, BtnNoName)
		return nil
	}

	if err := o.advance(sess, flow.StageAskNeed, out,
		reply(sess.Locale, "ask_need", greetingPrefix(sess.Locale, sess.UserName))); err != nil {
		return err
	}
	out.Buttons = makeButtons(sess.Locale, BtnHelp, BtnTask)
	return nil
}

func (o *Orchestrator) handleAskNeed(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch in.ButtonID {
	case BtnHelp:
		sess.Need = classify.NeedAssist
	case BtnTask:
		sess.Need = classify.NeedHowto
	}

	if sess.Need == classify.NeedUnknown && in.Text != "" {
		res := classify.Classify(in.Text)
		if res.Need == classify.NeedUnknown {
			// Keep the text around: it is usually a problem description even
			// when the intent is unclear, and re-typing it annoys people.
			if sess.Problem == "" {
				sess.Problem = strings.TrimSpace(in.Text)
				sess.ProblemCategory = res.Problem
			}
			out.Reply = reply(sess.Locale, "ask_need_again")
			out.Buttons = makeButtons(sess.Locale, BtnHelp, BtnTask)
			return nil
		}

		sess.Need = res.Need
		sess.Problem = strings.TrimSpace(in.Text)
		sess.ProblemCategory = res.Problem

		if err := o.advance(sess, flow.StageClassifyNeed, out, ""); err != nil {
			return err
		}
		if res.Device != classify.DeviceUnknown && res.DeviceConfidence >= o.cfg.DeviceConfidenceThreshold {
			sess.Device = res.Device
			sess.DeviceConfidence = res.DeviceConfidence
			if err := o.advance(sess, flow.StageDetectDevice, out,
				reply(sess.Locale, "confirm_device", string(res.Device))); err != nil {
				return err
			}
			out.Buttons = makeButtons(sess.Locale, BtnYes, BtnNo)
			return nil
		}
		return o.advance(sess, flow.StageAskDevice, out, reply(sess.Locale, "ask_device"))
	}

	if sess.Need == classify.NeedUnknown {
		out.Reply = reply(sess.Locale, "ask_need_again")
		out.Buttons = makeButtons(sess.Locale, BtnHelp, BtnTask)
		return nil
	}

	// Need chosen by button: no text to mine a device from, ask outright.
	if err := o.advance(sess, flow.StageClassifyNeed, out, ""); err != nil {
		return err
	}
	return o.advance(sess, flow.StageAskDevice, out, reply(sess.Locale, "ask_device"))
}

func (o *Orchestrator) handleAskDevice(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	res := classify.Classify(in.Text)
	if res.Device == classify.DeviceUnknown {
		out.Reply = reply(sess.Locale, "ask_device")
		return nil
	}
	sess.Device = res.Device
	sess.DeviceConfidence = res.DeviceConfidence
	return o.routeAfterDevice(ctx, sess, out)
}

func (o *Orchestrator) handleDetectDevice(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch in.ButtonID {
	case BtnYes:
		return o.routeAfterDevice(ctx, sess, out)
	case BtnNo:
		sess.Device = classify.DeviceUnknown
		sess.DeviceConfidence = 0
		return o.advance(sess, flow.StageAskDevice, out, reply(sess.Locale, "ask_device"))
	}

	// Free text at the confirmation prompt is treated as a correction.
	if res := classify.Classify(in.Text); res.Device != classify.DeviceUnknown {
		sess.Device = res.Device
		sess.DeviceConfidence = res.DeviceConfidence
		return o.routeAfterDevice(ctx, sess, out)
	}

	out.Reply = reply(sess.Locale, "confirm_device", string(sess.Device))
	out.Buttons = makeButtons(sess.Locale, BtnYes, BtnNo)
	return nil
}

func (o *Orchestrator) handleAskProblem(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		// An analysis-only turn lands here with the verdict already folded
		// into the problem description.
		text = strings.TrimSpace(sess.Problem)
	}
	if text == "" {
		out.Reply = reply(sess.Locale, "ask_problem")
		return nil
	}

	res := classify.Classify(text)
	sess.Problem = text
	sess.ProblemCategory = res.Problem
	if sess.Need == classify.NeedUnknown && res.Need != classify.NeedUnknown {
		sess.Need = res.Need
	}
	if sess.Device == classify.DeviceUnknown && res.Device != classify.DeviceUnknown &&
		res.DeviceConfidence >= o.cfg.DeviceConfidenceThreshold {
		sess.Device = res.Device
		sess.DeviceConfidence = res.DeviceConfidence
	}
	if sess.Device == classify.DeviceUnknown {
		return o.advance(sess, flow.StageAskDevice, out, reply(sess.Locale, "ask_device"))
	}
	return o.routeAfterProblem(ctx, sess, out)
}

// routeAfterDevice picks the continuation once the device is settled: straight
// to step generation when the problem (or task) is already captured, otherwise
// to the problem question.
func (o *Orchestrator) routeAfterDevice(ctx context.Context, sess *session.Session, out *TurnOutput) error {
	if sess.Problem == "" {
		return o.advance(sess, flow.StageAskProblem, out, reply(sess.Locale, "ask_problem"))
	}
	return o.routeAfterProblem(ctx, sess, out)
}

func (o *Orchestrator) routeAfterProblem(ctx context.Context, sess *session.Session, out *TurnOutput) error {
	if sess.Need == classify.NeedHowto {
		if err := o.advance(sess, flow.StageGenerateHowto, out, ""); err != nil {
			return err
		}
		o.presentSteps(ctx, sess, session.TierBasic, "present_howto", out)
		out.Buttons = makeButtons(sess.Locale, BtnSolved, BtnTestsFail, BtnNewTopic)
		return nil
	}

	if err := o.advance(sess, flow.StageBasicTests, out, ""); err != nil {
		return err
	}
	o.presentSteps(ctx, sess, session.TierBasic, "present_basic", out)
	out.Buttons = makeButtons(sess.Locale, BtnSolved, BtnTestsDone, BtnTestsFail, BtnNewTopic)
	return nil
}

// presentSteps generates (or re-reads) the tier's step list and renders it.
// The generator caches by problem/tier/locale, so a repeated visit to the same
// tier shows the same list.
func (o *Orchestrator) presentSteps(ctx context.Context, sess *session.Session, tier session.Tier, key string, out *TurnOutput) {
	list, ok := sess.StepsFor(tier)
	if !ok {
		list = o.steps.Generate(ctx, steps.Request{
			Tier:     tier,
			Device:   sess.Device,
			Problem:  sess.Problem,
			Category: sess.ProblemCategory,
			Locale:   sess.Locale,
		})
		sess.Steps[tier] = list
	}

	lines := make([]string, len(list))
	for i, s := range list {
		lines[i] = s.Description
	}
	out.Steps = list
	out.Reply = reply(sess.Locale, key, formatSteps(lines))
}

func (o *Orchestrator) handleHowtoOutcome(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch in.ButtonID {
	case BtnSolved:
		sess.ResolveAllSteps(session.TierBasic, session.StepConfirmed)
		return o.advance(sess, flow.StageEnded, out, reply(sess.Locale, "solved_goodbye"))
	case BtnTestsFail, BtnTestsDone:
		sess.ResolveAllSteps(session.TierBasic, session.StepFailed)
		return o.offerEscalation(sess, out)
	}
	out.Reply = reply(sess.Locale, "ask_outcome")
	out.Buttons = makeButtons(sess.Locale, BtnSolved, BtnTestsFail)
	return nil
}

func (o *Orchestrator) handleBasicOutcome(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch in.ButtonID {
	case BtnSolved:
		sess.ResolveAllSteps(session.TierBasic, session.StepConfirmed)
		return o.advance(sess, flow.StageEnded, out, reply(sess.Locale, "solved_goodbye"))
	case BtnTestsDone:
		// Did everything, still broken: the basic tier is exhausted.
		sess.ResolveAllSteps(session.TierBasic, session.StepConfirmed)
		if err := o.advance(sess, flow.StageAdvancedTests, out, ""); err != nil {
			return err
		}
		o.presentSteps(ctx, sess, session.TierAdvanced, "present_advanced", out)
		out.Buttons = makeButtons(sess.Locale, BtnSolved, BtnTestsDone, BtnTestsFail, BtnNewTopic)
		return nil
	case BtnTestsFail:
		sess.ResolveAllSteps(session.TierBasic, session.StepFailed)
		return o.offerEscalation(sess, out)
	}
	out.Reply = reply(sess.Locale, "ask_outcome")
	out.Buttons = makeButtons(sess.Locale, BtnSolved, BtnTestsDone, BtnTestsFail)
	return nil
}

func (o *Orchestrator) handleAdvancedOutcome(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	switch in.ButtonID {
	case BtnSolved:
		sess.ResolveAllSteps(session.TierAdvanced, session.StepConfirmed)
		return o.advance(sess, flow.StageEnded, out, reply(sess.Locale, "solved_goodbye"))
	case BtnTestsDone:
		sess.ResolveAllSteps(session.TierAdvanced, session.StepConfirmed)
		return o.offerEscalation(sess, out)
	case BtnTestsFail:
		sess.ResolveAllSteps(session.TierAdvanced, session.StepFailed)
		return o.offerEscalation(sess, out)
	}
	out.Reply = reply(sess.Locale, "ask_outcome")
	out.Buttons = makeButtons(sess.Locale, BtnSolved, BtnTestsDone, BtnTestsFail)
	return nil
}

func (o *Orchestrator) offerEscalation(sess *session.Session, out *TurnOutput) error {
	if err := o.advance(sess, flow.StageEscalate, out, reply(sess.Locale, "escalate_offer")); err != nil {
		return err
	}
	out.Buttons = makeButtons(sess.Locale, BtnYes, BtnNo)
	return nil
}

func (o *Orchestrator) handleEscalate(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	wantsTicket := in.ButtonID == BtnYes
	declines := in.ButtonID == BtnNo
	if in.ButtonID == "" {
		lowered := strings.ToLower(strings.TrimSpace(in.Text))
		wantsTicket = lowered == "si" || lowered == "sí" || lowered == "yes" || strings.HasPrefix(lowered, "si,") || strings.HasPrefix(lowered, "sí,")
		declines = lowered == "no" || strings.HasPrefix(lowered, "no,")
	}

	switch {
	case declines:
		return o.advance(sess, flow.StageEnded, out, reply(sess.Locale, "ended_goodbye"))
	case wantsTicket:
		if sess.Contact.Email != "" || sess.Contact.Phone != "" {
			if err := o.advance(sess, flow.StageCreateTicket, out, ""); err != nil {
				return err
			}
			return o.createTicket(ctx, sess, out)
		}
		return o.advance(sess, flow.StageAskContact, out, reply(sess.Locale, "ask_contact"))
	default:
		out.Reply = reply(sess.Locale, "escalate_offer")
		out.Buttons = makeButtons(sess.Locale, BtnYes, BtnNo)
		return nil
	}
}

func (o *Orchestrator) handleAskContact(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	contact, ok := parseContact(in.Text)
	if !ok {
		out.Reply = reply(sess.Locale, "ask_contact_again")
		return nil
	}
	if contact.Email != "" {
		sess.Contact.Email = contact.Email
	}
	if contact.Phone != "" {
		sess.Contact.Phone = contact.Phone
	}

	if err := o.advance(sess, flow.StageCreateTicket, out, ""); err != nil {
		return err
	}
	return o.createTicket(ctx, sess, out)
}

func (o *Orchestrator) handleCreateTicket(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	return o.createTicket(ctx, sess, out)
}

func (o *Orchestrator) handleTicketSent(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	return o.advance(sess, flow.StageEnded, out, reply(sess.Locale, "ended_goodbye"))
}

func (o *Orchestrator) handleSessionOver(ctx context.Context, sess *session.Session, in TurnInput, out *TurnOutput) error {
	out.Reply = reply(sess.Locale, "session_over")
	return nil
}

func (o *Orchestrator) createTicket(ctx context.Context, sess *session.Session, out *TurnOutput) error {
	t, err := o.tickets.CreateTicketOnce(ctx, sess)
	if err != nil {
		return err
	}

	out.TicketID = t.ID
	out.WhatsAppURL = o.tickets.DeepLink(t)
	return o.advance(sess, flow.StageTicketSent, out,
		reply(sess.Locale, "ticket_created", t.ID, out.WhatsAppURL))
}
