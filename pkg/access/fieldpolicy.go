package access

// RecordKind identifies a record shape whose field visibility may be gated by
// submodule grants. Only contact records carry submodule-scoped fields today.
type RecordKind string

const (
	RecordKindContact RecordKind = "contact"
)

// submoduleContactFields maps each CRM submodule to the contact fields it
// controls. This table is compile-time data on purpose: moving a field to a
// different submodule changes the meaning of every existing group grant, so
// it is a deployment-time change, not configuration or a data migration.
var submoduleContactFields = map[Submodule][]string{
	SubmoduleSupervision: {
		"guardian_name",
		"guardian_contact",
		"medical_notes",
		"supervision_notes",
		"supervision_status",
	},
	SubmoduleEvents: {
		"event_attendance",
		"event_roles",
		"event_payments",
	},
	SubmoduleShop: {
		"shop_orders",
		"shop_balance",
		"shop_discounts",
	},
}

// contactBaseFields are visible to anyone with CRM module access, regardless
// of submodule grants.
var contactBaseFields = []string{
	"id",
	"first_name",
	"last_name",
	"nickname",
	"email",
	"phone",
	"birth_date",
	"address",
	"group_ids",
}

// PolicyFields returns the contact fields controlled by a submodule
func PolicyFields(s Submodule) []string {
	fields := submoduleContactFields[s]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// fullContactFields returns every contact field: the base set followed by
// each submodule's fields in stable submodule order.
func fullContactFields() []string {
	out := make([]string, 0, len(contactBaseFields)+16)
	out = append(out, contactBaseFields...)
	for _, sub := range AllSubmodules() {
		out = append(out, submoduleContactFields[sub]...)
	}
	return out
}

// visibleContactFields computes the field mask for a caller holding the given
// effective CRM submodule set. The base fields are always included; listed
// fields require their owning submodule.
func visibleContactFields(subs map[Submodule]struct{}) []string {
	out := make([]string, 0, len(contactBaseFields)+8)
	out = append(out, contactBaseFields...)
	for _, sub := range AllSubmodules() {
		if _, ok := subs[sub]; ok {
			out = append(out, submoduleContactFields[sub]...)
		}
	}
	return out
}
