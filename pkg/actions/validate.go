package actions

const (
	MsgAppID          = "A valid app id must be supplied"
	MsgPlatform       = "A platform (ios, android,...) must be supplied"
	MsgKeyID          = "A valid key id must be supplied"
	MsgCollaboratorID = "A valid collaborator id must be supplied"
	MsgPayload        = "A form-data payload in json format must be supplied"
)

// Validation is one failed requirement, keyed by the action's URL template.
type Validation struct {
	Action  string `json:"action" yaml:"action"`
	Message string `json:"message" yaml:"message"`
}

type requirement struct {
	ids     map[int]bool
	value   func(Args) string
	message string
}

func idSet(ids ...int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// Checked in this order; the output keeps it.
var requirements = []requirement{
	{ids: idSet(2, 3, 8, 9, 10, 11, 15, 16, 17, 18), value: func(a Args) string { return a.AppID }, message: MsgAppID},
	{ids: idSet(3, 5, 6, 10, 12, 13, 14), value: func(a Args) string { return a.Platform }, message: MsgPlatform},
	{ids: idSet(5, 13, 14), value: func(a Args) string { return a.KeyID }, message: MsgKeyID},
	{ids: idSet(16, 17, 18), value: func(a Args) string { return a.CollaboratorID }, message: MsgCollaboratorID},
	{ids: idSet(7, 8, 12, 13, 15, 17), value: func(a Args) string { return a.Payload }, message: MsgPayload},
}

// Validate returns every missing argument the action needs. An empty result
// means the request may be issued.
func Validate(action Action, args Args) []Validation {
	var out []Validation
	for _, r := range requirements {
		if r.ids[action.ID] && isBlank(r.value(args)) {
			out = append(out, Validation{Action: action.URL, Message: r.message})
		}
	}
	return out
}
