package pubsub

import "testing"

func TestDomainEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   DomainEvent
		wantErr bool
	}{
		{
			name:  "valid",
			event: DomainEvent{Name: "order.placed", Detail: map[string]interface{}{"id": "o-1"}},
		},
		{
			name:    "missing name",
			event:   DomainEvent{Detail: map[string]interface{}{"id": "o-1"}},
			wantErr: true,
		},
		{
			name:    "missing detail",
			event:   DomainEvent{Name: "order.placed"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
