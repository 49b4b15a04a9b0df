// README: Push notification types and payloads.
package notify

type Type string

const (
	TypePickupAssigned  Type = "pickup_assigned"
	TypePickupEnRoute   Type = "pickup_en_route"
	TypePickupCompleted Type = "pickup_completed"
	TypeDepositVerified Type = "deposit_verified"
	TypeNewJob          Type = "new_job"
)

type Message struct {
	Type  Type
	Title string
	Body  string
	Data  map[string]string
}
