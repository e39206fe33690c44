package permission

const (
	ro  = 1 << Read
	rw  = ro | 1<<Write
	rwd = rw | 1<<Delete
)

func row(bits ...uint8) Matrix {
	var m Matrix
	for res, b := range bits {
		for act := Action(0); act < actionCount; act++ {
			m[res][act] = b&(1<<act) != 0
		}
	}
	return m
}

// role templates, indexed by Role; row order is cases, evidences, reports, patients,
// dentalRecords, users
var templates = [roleCount]Matrix{
	RoleUnknown:    row(ro, rw, ro, rw, ro, 0),
	RoleAssistente: row(ro, rw, ro, rw, ro, 0),
	RolePerito:     row(rw, rw, rw, rw, rw, 0),
	RoleAdmin:      row(rwd, rwd, rwd, rwd, rwd, rwd),
}

// DeriveFromRole returns the fixed permission template for role. Values outside the
// enum receive the assistente template.
func DeriveFromRole(role Role) Matrix {
	if role >= roleCount {
		return templates[RoleAssistente]
	}
	return templates[role]
}
