package pharmacy

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMedicineSearch(t *testing.T) {
	query, args, err := buildMedicineSearch("Para", 20)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "SELECT id, generic_name"), query)
	assert.Contains(t, query, `FROM "medicines"`)
	assert.Contains(t, query, `"generic_name" ILIKE $1`)
	assert.Contains(t, query, `"brand_name" ILIKE $2`)
	assert.Contains(t, query, " OR ")
	assert.Contains(t, query, `ORDER BY "generic_name" ASC`)
	assert.Contains(t, query, "LIMIT $3")
	assert.NotContains(t, query, "Para")

	require.Len(t, args, 3)
	assert.Equal(t, "%Para%", args[0])
	assert.Equal(t, "%Para%", args[1])
}

func TestBuildMedicineSearch_EscapesWildcards(t *testing.T) {
	_, args, err := buildMedicineSearch(`50%_off\`, 20)
	require.NoError(t, err)
	assert.Equal(t, `%50\%\_off\\%`, args[0])
}

func TestBuildNearbyQuery(t *testing.T) {
	query, args, err := buildNearbyQuery(BoxAround(colomboLat, colomboLon, 5))
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "pharmacies"`)
	assert.Contains(t, query, `"is_active" IS TRUE`)
	assert.Contains(t, query, `"latitude" BETWEEN $1 AND $2`)
	assert.Contains(t, query, `"longitude" BETWEEN $3 AND $4`)
	assert.Len(t, args, 4)
}

func TestBuildNearbyQuery_WrappedLongitude(t *testing.T) {
	query, args, err := buildNearbyQuery(BoxAround(0, 179.99, 5))
	require.NoError(t, err)

	assert.Contains(t, query, `"latitude" BETWEEN`)
	assert.NotContains(t, query, `"longitude" BETWEEN`)
	assert.Len(t, args, 2)
}

func TestBuildInventoryList(t *testing.T) {
	id := uuid.New()
	query, args, err := buildInventoryList(id, 20, 40)
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "medicine_inventory" AS "i"`)
	assert.Contains(t, query, `INNER JOIN "medicines" AS "m" ON ("m"."id" = "i"."medicine_id")`)
	assert.Contains(t, query, `"i"."pharmacy_id" = $1`)
	assert.Contains(t, query, `ORDER BY "m"."generic_name" ASC, "i"."last_updated" DESC`)
	assert.Contains(t, query, "LIMIT $2")
	assert.Contains(t, query, "OFFSET $3")
	assert.Equal(t, id.String(), args[0])
}
