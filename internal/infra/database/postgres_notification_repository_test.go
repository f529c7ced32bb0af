package database

import (
	"testing"

	"bookkeeping-notifier/internal/domain/notification"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    notification.ListFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "empty filter",
			filter:    notification.ListFilter{},
			wantWhere: "",
		},
		{
			name:      "ids short-circuit every other field",
			filter:    notification.ListFilter{IDs: []string{"n1", "n2"}, Status: notification.StatusSent},
			wantWhere: "WHERE n.id = ANY($1)",
		},
		{
			name:      "combined conditions keep placeholder order",
			filter:    notification.ListFilter{Status: notification.StatusCreated, Channel: notification.ChannelEmail},
			wantWhere: "WHERE n.status = $1 AND n.channel = $2",
			wantArgs:  []any{notification.StatusCreated, notification.ChannelEmail},
		},
		{
			name:      "message match is a literal substring",
			filter:    notification.ListFilter{MessageContains: `50%_off\deal`},
			wantWhere: "WHERE n.message ILIKE '%' || $1 || '%'",
			wantArgs:  []any{`50\%\_off\\deal`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildFilter(tt.filter, nil)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if tt.wantArgs != nil {
				if len(args) != len(tt.wantArgs) {
					t.Fatalf("got %d args, want %d", len(args), len(tt.wantArgs))
				}
				for i := range args {
					if args[i] != tt.wantArgs[i] {
						t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
					}
				}
			}
		})
	}
}
