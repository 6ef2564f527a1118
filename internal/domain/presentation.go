package domain

import "strconv"

// FallbackColor is used for values outside the known enumerations.
const FallbackColor = "#666666"

// Label returns the display name of a status.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusOpen:
		return "Abierto"
	case TicketStatusInProgress:
		return "En Progreso"
	case TicketStatusPending:
		return "Pendiente"
	case TicketStatusResolved:
		return "Resuelto"
	case TicketStatusClosed:
		return "Cerrado"
	}
	return string(s)
}

// Color returns the badge color of a status.
func (s TicketStatus) Color() string {
	switch s {
	case TicketStatusOpen:
		return "#2196F3"
	case TicketStatusInProgress:
		return "#FF9800"
	case TicketStatusPending:
		return "#9C27B0"
	case TicketStatusResolved:
		return "#1B5E20"
	case TicketStatusClosed:
		return "#607D8B"
	}
	return FallbackColor
}

func (p TicketPriority) Label() string {
	switch p {
	case TicketPriorityLow:
		return "Baja"
	case TicketPriorityMedium:
		return "Media"
	case TicketPriorityHigh:
		return "Alta"
	}
	return string(p)
}

func (p TicketPriority) Color() string {
	switch p {
	case TicketPriorityLow:
		return "#1B5E20"
	case TicketPriorityMedium:
		return "#FF9800"
	case TicketPriorityHigh:
		return "#F44336"
	}
	return FallbackColor
}

func (c TicketCategory) Label() string {
	switch c {
	case TicketCategoryHardware:
		return "Hardware"
	case TicketCategorySoftware:
		return "Software"
	case TicketCategoryNetwork:
		return "Redes"
	case TicketCategoryPrinter:
		return "Impresoras"
	case TicketCategoryUserSupport:
		return "Soporte Usuario"
	case TicketCategoryOther:
		return "Otro"
	}
	return string(c)
}

// Icon returns the icon glyph name for a category.
func (c TicketCategory) Icon() string {
	switch c {
	case TicketCategoryHardware:
		return "memory"
	case TicketCategorySoftware:
		return "apps"
	case TicketCategoryNetwork:
		return "wifi"
	case TicketCategoryPrinter:
		return "printer-outline"
	case TicketCategoryUserSupport:
		return "account-circle-outline"
	case TicketCategoryOther:
		return "help-circle-outline"
	}
	return "help-circle-outline"
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RolePatient:
		return "Paciente"
	}
	return "Usuario"
}

func (r Role) Icon() string {
	switch r {
	case RoleAdmin:
		return "shield-checkmark"
	case RolePatient:
		return "person"
	}
	return "help-circle"
}

// IsColorLight reports whether a #RRGGBB color needs dark text on top of it.
func IsColorLight(color string) bool {
	if len(color) != 7 || color[0] != '#' {
		return false
	}
	var rgb [3]int64
	for i := range rgb {
		v, err := strconv.ParseInt(color[1+2*i:3+2*i], 16, 64)
		if err != nil {
			return false
		}
		rgb[i] = v
	}
	brightness := (rgb[0]*299 + rgb[1]*587 + rgb[2]*114) / 1000
	return brightness > 155
}

// TextColorOn returns the readable text color for a background.
func TextColorOn(background string) string {
	if IsColorLight(background) {
		return "#000000"
	}
	return "#FFFFFF"
}
