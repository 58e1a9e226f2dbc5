package pagesource

import (
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
)

// toastNode presents a pending toast as a leaf of the tree. It stays fresh
// for as long as the notification source still reports the toast.
type toastNode struct {
	toast  platform.Toast
	source platform.NotificationSource
	index  int
}

func (t *toastNode) Key() string {
	return "toast:" + t.toast.Package + ":" + t.toast.Text
}

func (t *toastNode) Info() model.NodeInfo {
	return model.NodeInfo{
		Index:     t.index,
		Class:     ToastClass,
		Package:   t.toast.Package,
		Text:      t.toast.Text,
		Displayed: true,
		Enabled:   true,
	}
}

func (t *toastNode) Parent() platform.Node     { return nil }
func (t *toastNode) Children() []platform.Node { return nil }

func (t *toastNode) Refresh() bool {
	for _, p := range t.source.PendingToasts() {
		if p == t.toast {
			return true
		}
	}
	return false
}

func (t *toastNode) PerformAction(platform.Action, map[string]string) bool {
	return false
}
