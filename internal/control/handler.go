package control

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusmap/nexus/internal/syncctl"
)

// Syncer is the part of the sync controller the control socket drives.
type Syncer interface {
	Flush(ctx context.Context) error
	ForceRefresh(ctx context.Context) error
	Status() syncctl.Status
}

// SyncHandler serves save, refresh and status commands for the project s syncs.
func SyncHandler(s Syncer) Handler {
	return func(ctx context.Context, cmd Command) (map[string]interface{}, error) {
		st := s.Status()
		if cmd.ProjectID != "" && cmd.ProjectID != st.ProjectID {
			return nil, fmt.Errorf("serving project %s, not %s", st.ProjectID, cmd.ProjectID)
		}

		switch cmd.Type {
		case CommandSave:
			if err := s.Flush(ctx); err != nil {
				return nil, err
			}
		case CommandRefresh:
			if err := s.ForceRefresh(ctx); err != nil {
				return nil, err
			}
		case CommandStatus:
		default:
			return nil, fmt.Errorf("unknown command %q", cmd.Type)
		}
		return statusData(s.Status()), nil
	}
}

func statusData(st syncctl.Status) map[string]interface{} {
	data := map[string]interface{}{
		"project_id":   st.ProjectID,
		"pending":      st.Pending,
		"dirty":        st.Dirty,
		"saving":       st.Saving,
		"bootstrapped": st.Bootstrapped,
	}
	if !st.LastSave.IsZero() {
		data["last_save"] = st.LastSave.Format(time.RFC3339)
	}
	return data
}
