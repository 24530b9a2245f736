package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Test{},
		&Attempt{},
		&AttemptScore{},
		&Flag{},
		&ActivityLog{},
	}
}
