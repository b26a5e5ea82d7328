package entity

// Icon names by notification type. Unknown types fall back to DefaultIcon.
var typeIcons = map[string]string{
	"vital":       "heart-pulse",
	"symptom":     "stethoscope",
	"appointment": "calendar",
	"chat":        "message-circle",
	"order":       "package",
	"goal":        "target",
	"system":      "info",
}

const DefaultIcon = "bell"

func IconForType(notificationType string) string {
	if icon, ok := typeIcons[notificationType]; ok {
		return icon
	}
	return DefaultIcon
}

// Client-side routes by action type. Unknown action types get the default
// route so new server-side vocabulary degrades gracefully on old clients.
var actionRoutes = map[string]string{
	"review":     "/review",
	"message":    "/messages",
	"call":       "/call",
	"reply":      "/messages/reply",
	"reschedule": "/appointments/reschedule",
	"cancel":     "/appointments/cancel",
	"archive":    "/archive",
	"track":      "/orders/track",
	"support":    "/support",
}

const DefaultActionRoute = "/notifications"

func RouteForActionType(actionType string) string {
	if route, ok := actionRoutes[actionType]; ok {
		return route
	}
	return DefaultActionRoute
}
