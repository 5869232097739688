package notify

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Desktop notification service on the session bus.
const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"

	appName       = "timewarp"
	errorIcon     = "dialog-error"
	urgencyHigh   = byte(2)
	expireDefault = int32(-1)
)

// DBusNotifier posts org.freedesktop.Notifications notifications.
type DBusNotifier struct {
	obj    dbus.BusObject
	logger *slog.Logger
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier(logger *slog.Logger) (*DBusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return newDBusNotifier(conn.Object(notificationsService, notificationsPath), logger), nil
}

func newDBusNotifier(obj dbus.BusObject, logger *slog.Logger) *DBusNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBusNotifier{obj: obj, logger: logger}
}

// ShowError implements Notifier. The error is logged as well, since
// notifications are easy to miss.
func (n *DBusNotifier) ShowError(title, message string) error {
	n.logger.Error(title, "message", message)

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyHigh),
	}
	call := n.obj.Call(notificationsInterface+".Notify", 0,
		appName,       // app_name
		uint32(0),     // replaces_id
		errorIcon,     // app_icon
		title,         // summary
		message,       // body
		[]string{},    // actions
		hints,         // hints
		expireDefault, // expire_timeout
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
