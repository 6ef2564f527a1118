package client

import (
	"errors"

	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

var (
	// ErrBusy is returned when an action is triggered while the same
	// action is still in flight.
	ErrBusy = errors.New("client: action already in progress")
	// ErrSignedOut is returned by operations that need a signed-in user.
	ErrSignedOut = errors.New("client: not signed in")
	// ErrClosed is returned by views used after Close.
	ErrClosed = errors.New("client: view closed")
	// ErrNotReady is returned by actions issued before the first snapshot.
	ErrNotReady = errors.New("client: data not loaded yet")
)

// FormError is a validation failure detected locally; no backend call was
// issued. Message is ready to show to the user.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }

func formError(message string) error { return &FormError{Message: message} }

// User-facing texts.
const (
	MsgMissingCredentials = "Por favor ingresa tu correo y contraseña."
	MsgMissingSignUp      = "Por favor completa todos los campos obligatorios."
	MsgInvalidCredentials = "Correo o contraseña incorrectos."
	MsgEmailInUse         = "El correo electrónico ya está en uso."
	MsgWeakPassword       = "La contraseña debe tener al menos 6 caracteres."
	MsgAuthFallback       = "Revisa tus credenciales o intenta más tarde."

	MsgMissingTicketFields = "Por favor completa todos los campos obligatorios (*)."
	MsgMissingProfile      = "El nombre y el sector son obligatorios."
	MsgEmptyComment        = "El comentario no puede estar vacío."
	MsgNotAllowed          = "No tienes permisos para realizar esta acción."
	MsgInvalidTransition   = "Ese cambio de estado no está permitido."
	MsgInvalidPriority     = "La prioridad seleccionada no es válida."

	MsgCreateTicketFailed  = "No se pudo crear el ticket. Inténtalo de nuevo."
	MsgLoadTicketsFailed   = "No se pudo cargar la lista de tickets."
	MsgAddCommentFailed    = "No se pudo agregar el comentario."
	MsgUpdateTicketFailed  = "No se pudo actualizar el ticket."
	MsgDeleteTicketFailed  = "No se pudo eliminar el ticket."
	MsgUpdateProfileFailed = "No se pudo actualizar el perfil."

	MsgNoTicketsYet      = "Aún no se han creado tickets"
	MsgNoTicketsFiltered = "No se encontraron tickets con los filtros aplicados"
)

// AuthMessage maps a sign-in or sign-up failure to one of the fixed
// user-facing messages.
func AuthMessage(err error) string {
	var form *FormError
	if errors.As(err, &form) {
		return form.Message
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case apperrors.CodeInvalidCredentials:
			return MsgInvalidCredentials
		case apperrors.CodeEmailInUse:
			return MsgEmailInUse
		case apperrors.CodeWeakPassword:
			return MsgWeakPassword
		}
	}
	return MsgAuthFallback
}

// ErrorMessage returns the text to show for a failed action: the local
// validation message when there is one, fallback otherwise.
func ErrorMessage(err error, fallback string) string {
	var form *FormError
	if errors.As(err, &form) {
		return form.Message
	}
	return fallback
}
