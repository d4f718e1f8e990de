package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-sales-api/internal/models"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

type assignerTx struct {
	fakeEnrollmentTx
	occupancy []models.GroupOccupancy
	created   *models.Group
	added     []string
}

func (t *assignerTx) GroupsByOccupancy(ctx context.Context, courseID string) ([]models.GroupOccupancy, error) {
	return t.occupancy, nil
}

func (t *assignerTx) CreateGroup(ctx context.Context, group *models.Group) error {
	group.ID = "new-group"
	t.created = group
	return nil
}

func (t *assignerTx) AddGroupMember(ctx context.Context, groupID, userID string) error {
	t.added = append(t.added, groupID)
	return nil
}

func occupancies(counts ...int) []models.GroupOccupancy {
	groups := make([]models.GroupOccupancy, len(counts))
	for i, count := range counts {
		groups[i] = models.GroupOccupancy{
			Group:       models.Group{ID: string(rune('a' + i)), CourseID: "c1", Position: i + 1},
			MemberCount: count,
		}
	}
	return groups
}

func TestGroupAssignerOpensNewGroupUnderQuota(t *testing.T) {
	assigner := NewGroupAssigner(testLimits(3, 5), zap.NewNop())
	tx := &assignerTx{occupancy: occupancies(5, 5)}

	group, err := assigner.Assign(context.Background(), tx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, tx.created)
	assert.Equal(t, 3, group.Position)
	assert.Equal(t, []string{"new-group"}, tx.added)
}

func TestGroupAssignerFillsLeastPopulated(t *testing.T) {
	assigner := NewGroupAssigner(testLimits(2, 5), zap.NewNop())
	tx := &assignerTx{occupancy: occupancies(2, 4)}

	group, err := assigner.Assign(context.Background(), tx, "c1", "u1")
	require.NoError(t, err)
	assert.Nil(t, tx.created)
	assert.Equal(t, "a", group.ID)
	assert.Equal(t, []string{"a"}, tx.added)
}

func TestGroupAssignerCourseFull(t *testing.T) {
	assigner := NewGroupAssigner(testLimits(2, 3), zap.NewNop())
	tx := &assignerTx{occupancy: occupancies(3, 3)}

	_, err := assigner.Assign(context.Background(), tx, "c1", "u1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCourseFull))
	assert.Nil(t, tx.created)
	assert.Empty(t, tx.added)
}
