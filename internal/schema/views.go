package schema

// ReportingViews returns the aggregation views declared over the persons
// table. Each is a percentage-of-total or percentage-of-group breakdown.
func ReportingViews() []ViewDefinition {
	return []ViewDefinition{
		{
			Name:        "email_provider_stats",
			Description: "Email provider usage share",
			Query: `
		SELECT
			email AS email_provider,
			COUNT(*) AS user_count,
			ROUND(COUNT(*) * 100.0 / (SELECT COUNT(*) FROM {table}), 2) AS percentage
		FROM {table}
		GROUP BY email
		ORDER BY user_count DESC`,
		},
		{
			Name:        "country_stats",
			Description: "Country-based user distribution",
			Query: `
		SELECT
			country,
			COUNT(*) AS user_count,
			ROUND(COUNT(*) * 100.0 / (SELECT COUNT(*) FROM {table}), 2) AS percentage
		FROM {table}
		GROUP BY country
		ORDER BY user_count DESC`,
		},
		{
			Name:        "email_by_country",
			Description: "Email provider usage by country",
			Query: `
		SELECT
			country,
			email AS email_provider,
			COUNT(*) AS user_count,
			ROUND(COUNT(*) * 100.0 / (
				SELECT COUNT(*) FROM {table} p2
				WHERE p2.country = p1.country
			), 2) AS country_percentage
		FROM {table} p1
		GROUP BY country, email
		ORDER BY country, user_count DESC`,
		},
		{
			Name:        "age_group_stats",
			Description: "Age bucket distribution",
			Query: `
		SELECT
			birthday AS age_group,
			COUNT(*) AS user_count,
			ROUND(COUNT(*) * 100.0 / (SELECT COUNT(*) FROM {table}), 2) AS percentage
		FROM {table}
		GROUP BY birthday
		ORDER BY birthday`,
		},
	}
}
