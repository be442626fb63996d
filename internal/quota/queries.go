package quota

const (
	queryGetQuota = `
		SELECT user_id, plan_type, monthly_limit, current_usage, reset_date, created_at, updated_at
		FROM user_quotas
		WHERE user_id = $1
	`

	queryCreateQuota = `
		INSERT INTO user_quotas (user_id, plan_type, monthly_limit, current_usage, reset_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING user_id, plan_type, monthly_limit, current_usage, reset_date, created_at, updated_at
	`

	queryResetQuota = `
		UPDATE user_quotas
		SET current_usage = 0, reset_date = $2, updated_at = NOW()
		WHERE user_id = $1 AND reset_date <= $3
		RETURNING user_id, plan_type, monthly_limit, current_usage, reset_date, created_at, updated_at
	`

	queryIncrementUsage = `
		UPDATE user_quotas
		SET current_usage = current_usage + 1, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, plan_type, monthly_limit, current_usage, reset_date, created_at, updated_at
	`

	queryDecrementUsage = `
		UPDATE user_quotas
		SET current_usage = GREATEST(current_usage - 1, 0), updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, plan_type, monthly_limit, current_usage, reset_date, created_at, updated_at
	`
)
