package datastore

const (
	getRecord = `
	SELECT value FROM records
	WHERE key = $1
	`

	putRecord = `
	INSERT INTO records (key, value)
	VALUES (@key, @value)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value, updated_at = now()
	`

	createRecord = `
	INSERT INTO records (key, value)
	VALUES (@key, @value)
	ON CONFLICT (key) DO NOTHING
	RETURNING key
	`
)
