package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	t.Run("empty matches everything", func(t *testing.T) {
		sql, args, err := All().ToSql()
		require.NoError(t, err)
		assert.Equal(t, "(1=1)", sql)
		assert.Empty(t, args)
	})

	t.Run("nil parts are skipped", func(t *testing.T) {
		sql, args, err := All(nil, Equals("status", "ACTIVE"), nil).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "status = ?", sql)
		assert.Equal(t, []interface{}{"ACTIVE"}, args)
	})

	t.Run("dimensions combine with AND, alternatives with OR", func(t *testing.T) {
		pred := All(
			Equals("type", "ADMIN"),
			Any(Contains("name", "ann"), Contains("email", "ann")),
		)
		sql, args, err := pred.ToSql()
		require.NoError(t, err)
		assert.Equal(t, "(type = ? AND (name ILIKE ? OR email ILIKE ?))", sql)
		assert.Equal(t, []interface{}{"ADMIN", "%ann%", "%ann%"}, args)
	})
}

func TestAny(t *testing.T) {
	assert.Nil(t, Any())
	assert.Nil(t, Any(nil, nil))

	sql, _, err := Any(nil, Equals("a", 1)).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "a = ?", sql)
}

func TestIn(t *testing.T) {
	sql, args, err := In("type", []string{"ADMIN", "COACH"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "type IN (?,?)", sql)
	assert.Equal(t, []interface{}{"ADMIN", "COACH"}, args)

	sql, _, err = In[string]("type", nil).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "1=0", sql)
}

func TestContainsEscapesWildcards(t *testing.T) {
	_, args, err := Contains("name", `50%_off\`).ToSql()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{`%50\%\_off\\%`}, args)
}

func TestExistsRenumbersPlaceholders(t *testing.T) {
	sub := Builder.Select("1").From("user_roles r").
		Where("r.user_id = users.id").
		Where(Equals("r.school_id", "S1"))

	sql, args, err := Builder.Select("id").From("users").
		Where(All(Equals("users.name", "Ann"), Exists(sub))).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM users WHERE (users.name = $1 AND EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = users.id AND r.school_id = $2))",
		sql)
	assert.Equal(t, []interface{}{"Ann", "S1"}, args)
}

func TestExistsPlaceholdersAcrossSeveralSubqueries(t *testing.T) {
	children := Builder.Select("1").From("user_roles r").
		Where(All(Equals("r.user_id", "P1"), Equals("r.type", "PARENT")))
	roles := Builder.Select("1").From("user_roles r").
		Where(In("r.type", []string{"ATHLETE", "COACH"}))

	sql, args, err := Builder.Select("id").From("users").
		Where(All(Exists(roles), Exists(children), Contains("users.name", "an"))).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM users WHERE (EXISTS (SELECT 1 FROM user_roles r WHERE r.type IN ($1,$2)) AND "+
			"EXISTS (SELECT 1 FROM user_roles r WHERE (r.user_id = $3 AND r.type = $4)) AND users.name ILIKE $5)",
		sql)
	assert.Equal(t, []interface{}{"ATHLETE", "COACH", "P1", "PARENT", "%an%"}, args)
}
