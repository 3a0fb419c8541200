package exchange

import (
	"fmt"

	"github.com/erazemk/polyswap/internal/model"
)

// Role is a user's side of an exchange.
type Role int

// Roles.
const (
	RoleUnrelated Role = iota
	RoleOfferer        // material source, stored as seller_id
	RoleCollector      // material receiver, stored as buyer_id
)

func (r Role) String() string {
	switch r {
	case RoleOfferer:
		return "offerer"
	case RoleCollector:
		return "collector"
	}
	return "unrelated"
}

// sides maps one post category onto the two roles.
type sides struct {
	owner   Role // the responder takes the other role
	handoff Role // performs the physical hand-off and uploads proof
}

var categorySides = map[model.Category]sides{
	model.CategorySeeking: {owner: RoleOfferer, handoff: RoleOfferer},
	model.CategorySelling: {owner: RoleOfferer, handoff: RoleCollector},
}

// ResolveRole returns the role of actorID on an offer. Users who are neither
// the seller nor the buyer, and posts of unknown category, resolve to
// RoleUnrelated.
func ResolveRole(category model.Category, ownerID, sellerID, buyerID, actorID string) Role {
	s, ok := categorySides[category]
	if !ok || actorID == "" {
		return RoleUnrelated
	}

	switch actorID {
	case ownerID:
		return s.owner
	case sellerID:
		return RoleOfferer
	case buyerID:
		return RoleCollector
	}
	return RoleUnrelated
}

// Sides returns the seller and buyer ids of a new offer from responderID on a
// post owned by ownerID.
func Sides(category model.Category, ownerID, responderID string) (sellerID, buyerID string, err error) {
	s, ok := categorySides[category]
	if !ok {
		return "", "", fmt.Errorf("unknown post category %q", category)
	}
	if s.owner == RoleOfferer {
		return ownerID, responderID, nil
	}
	return responderID, ownerID, nil
}

// HandoffRole returns the role that uploads proof of collection for posts of
// the given category.
func HandoffRole(category model.Category) Role {
	return categorySides[category].handoff
}

// Actor is a user resolved against one deal.
type Actor struct {
	UserID    string
	Role      Role
	Owner     bool // owns the post
	Responder bool // submitted the offer
	Handoff   bool // performs the physical hand-off
	Proposer  bool // proposed the current schedule slot
}

// ResolveActor resolves userID against d.
func ResolveActor(d *Deal, userID string) Actor {
	role := ResolveRole(d.Post.Category, d.Post.OwnerID, d.Offer.SellerID, d.Offer.BuyerID, userID)
	a := Actor{UserID: userID, Role: role}
	if role == RoleUnrelated {
		return a
	}

	a.Owner = userID == d.Post.OwnerID
	a.Responder = userID == d.Offer.ResponderID
	a.Handoff = role == HandoffRole(d.Post.Category)
	a.Proposer = d.Schedule != nil && d.Schedule.ProposedBy == userID
	return a
}

// Participant reports whether the actor is one of the two parties.
func (a Actor) Participant() bool {
	return a.Role != RoleUnrelated
}

// Satisfies reports whether the actor may act as p.
func (a Actor) Satisfies(p Party) bool {
	switch p {
	case PartyOwner:
		return a.Owner
	case PartyResponder:
		return a.Responder
	case PartyOfferer:
		return a.Role == RoleOfferer
	case PartyCollector:
		return a.Role == RoleCollector
	case PartyHandoff:
		return a.Handoff
	case PartyCounterparty:
		return a.Participant() && !a.Proposer
	case PartyEither:
		return a.Participant()
	}
	return false
}
