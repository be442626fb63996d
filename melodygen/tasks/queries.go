package tasks

// outputs and error_message are nullable, coalesced at the boundary so
// scanning stays on plain Go types
const (
	taskColumns = `id, task_id, user_id, kind, status, prompt, inputs,
		COALESCE(outputs, '{}'), COALESCE(error_message, ''), reverted, created_at, updated_at`

	queryCreateTask = `
		INSERT INTO generation_tasks (id, task_id, user_id, kind, status, prompt, inputs)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + taskColumns

	queryGetByTaskID = `
		SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE task_id = $1
	`

	queryUpdateStatus = `
		UPDATE generation_tasks
		SET status = $2, outputs = $3, error_message = $4, updated_at = NOW()
		WHERE task_id = $1
		RETURNING ` + taskColumns

	queryMarkReverted = `
		UPDATE generation_tasks
		SET reverted = TRUE, updated_at = NOW()
		WHERE task_id = $1 AND reverted = FALSE
	`

	queryListStale = `
		SELECT ` + taskColumns + `
		FROM generation_tasks
		WHERE status IN ('created', 'processing') AND created_at < $1
		ORDER BY created_at
		LIMIT 100
	`
)
