package exchange

// Action is a user-triggered step on an exchange.
type Action string

// Actions.
const (
	ActionAccept       Action = "accept"
	ActionDecline      Action = "decline"
	ActionWithdraw     Action = "withdraw"
	ActionSchedule     Action = "schedule"
	ActionReschedule   Action = "reschedule"
	ActionAgree        Action = "agree"
	ActionUploadProof  Action = "upload_proof"
	ActionConfirmProof Action = "confirm_proof"
	ActionMarkPayment  Action = "mark_payment"
	ActionComplete     Action = "complete"
	ActionCancel       Action = "cancel"
)

// Party names who may trigger a rule.
type Party int

// Parties.
const (
	PartyOwner Party = iota + 1
	PartyResponder
	PartyOfferer
	PartyCollector
	PartyHandoff
	PartyCounterparty // the participant who did not propose the current slot
	PartyEither
)

// Rule is one row of the transition table.
type Rule struct {
	Action Action
	From   []Stage
	To     Stage // empty when the action removes the offer
	Party  Party

	// Repeatable rules loop on their stage and are never treated as a replay.
	Repeatable bool
	// Locked rules report ErrForbidden instead of ErrInvalidTransition
	// outside their From stages.
	Locked bool
}

var rules = map[Action]Rule{
	ActionAccept:       {Action: ActionAccept, From: []Stage{StageOfferMade}, To: StageOfferAccepted, Party: PartyOwner},
	ActionDecline:      {Action: ActionDecline, From: []Stage{StageOfferMade}, To: StageDeclined, Party: PartyOwner},
	ActionWithdraw:     {Action: ActionWithdraw, From: []Stage{StageOfferMade}, Party: PartyResponder},
	ActionSchedule:     {Action: ActionSchedule, From: []Stage{StageOfferAccepted}, To: StageScheduleSet, Party: PartyOwner},
	ActionReschedule:   {Action: ActionReschedule, From: []Stage{StageScheduleSet}, To: StageScheduleSet, Party: PartyEither, Repeatable: true, Locked: true},
	ActionAgree:        {Action: ActionAgree, From: []Stage{StageScheduleSet}, To: StageForCollection, Party: PartyCounterparty},
	ActionUploadProof:  {Action: ActionUploadProof, From: []Stage{StageForCollection}, To: StageProofUploaded, Party: PartyHandoff},
	ActionConfirmProof: {Action: ActionConfirmProof, From: []Stage{StageProofUploaded}, To: StageAwaitingPayment, Party: PartyCollector},
	ActionMarkPayment:  {Action: ActionMarkPayment, From: []Stage{StageAwaitingPayment}, To: StageForCompletion, Party: PartyCollector},
	ActionComplete:     {Action: ActionComplete, From: []Stage{StageForCompletion}, To: StageCompleted, Party: PartyOfferer},
	ActionCancel:       {Action: ActionCancel, From: nonTerminal(), To: StageCancelled, Party: PartyEither},
}

func nonTerminal() []Stage {
	var out []Stage
	for _, s := range pipeline {
		if !s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// RuleFor returns the rule for action.
func RuleFor(action Action) (Rule, bool) {
	r, ok := rules[action]
	return r, ok
}

// Rules returns every rule in the table.
func Rules() []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, r)
	}
	return out
}

// Allows reports whether the rule may fire from stage from.
func (r Rule) Allows(from Stage) bool {
	for _, s := range r.From {
		if s == from {
			return true
		}
	}
	return false
}

// Next returns the stage reached by applying r from stage from.
func (r Rule) Next(from Stage) (Stage, error) {
	if !r.Allows(from) {
		if r.Locked {
			return "", forbidden("cannot %s once the exchange is at %s", r.Action, from)
		}
		return "", &TransitionError{Action: r.Action, From: from, To: r.To}
	}
	return r.To, nil
}

// Transition validates action from stage from and returns the next stage.
func Transition(from Stage, action Action) (Stage, error) {
	r, ok := rules[action]
	if !ok {
		return "", &TransitionError{Action: action, From: from}
	}
	return r.Next(from)
}
