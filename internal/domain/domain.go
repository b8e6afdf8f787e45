package domain

import (
	"github.com/yungbote/identity-backend/internal/domain/contact"
)

const (
	LinkPrecedencePrimary   = contact.LinkPrecedencePrimary
	LinkPrecedenceSecondary = contact.LinkPrecedenceSecondary

	LinkActionCreatedPrimary   = contact.LinkActionCreatedPrimary
	LinkActionCreatedSecondary = contact.LinkActionCreatedSecondary
	LinkActionDemoted          = contact.LinkActionDemoted
	LinkActionRelinked         = contact.LinkActionRelinked
)

type LinkPrecedence = contact.LinkPrecedence
type LinkAction = contact.LinkAction

type Contact = contact.Contact
type ContactLinkEvent = contact.ContactLinkEvent
