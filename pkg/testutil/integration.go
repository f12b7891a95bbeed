package testutil

import (
	"context"
	"strconv"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/storage"
)

// ManagerSuite checks that a storage.Manager honours the column family
// manager contract. Every test works on its own entity name so that suites
// can run against shared databases.
type ManagerSuite struct {
	suite.Suite

	// Open creates the manager under test.
	Open func(ctx context.Context) (storage.Manager, error)

	ctx       context.Context
	cancel    context.CancelFunc
	manager   storage.Manager
	startTime time.Time
	name      string
}

// SetupSuite runs before all tests in the suite
func (s *ManagerSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)
	s.startTime = time.Now()

	require.NotNil(s.T(), s.Open, "ManagerSuite.Open is required")
	m, err := s.Open(s.ctx)
	require.NoError(s.T(), err)
	s.manager = m
}

// TearDownSuite runs after all tests in the suite
func (s *ManagerSuite) TearDownSuite() {
	if s.manager != nil {
		s.NoError(s.manager.Close(context.Background()))
	}
	s.cancel()
	s.T().Logf("storage suite completed in %v", time.Since(s.startTime))
}

// SetupTest picks a fresh entity name.
func (s *ManagerSuite) SetupTest() {
	s.name = "Book" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// TearDownTest removes what the test stored.
func (s *ManagerSuite) TearDownTest() {
	all, err := s.manager.FindAll(s.ctx, s.name)
	if err != nil {
		return
	}
	for _, e := range all {
		if c, ok := e.Find("_id"); ok {
			_ = s.manager.Delete(s.ctx, s.name, c)
		}
	}
}

// Context returns the suite context
func (s *ManagerSuite) Context() context.Context {
	return s.ctx
}

func (s *ManagerSuite) book(id int64, title string) *column.Entity {
	return column.EntityOf(s.name,
		column.Of("_id", id),
		column.Of("name", title),
		column.Of("authors", []column.Column{column.Of("name", "Kent Beck")}),
		column.Of("chapters", [][]column.Column{
			{column.Of("title", "Red")},
			{column.Of("title", "Green")},
		}),
	)
}

func (s *ManagerSuite) title(e *column.Entity) string {
	v, ok, err := column.Find[string](e, "name")
	s.Require().NoError(err)
	s.Require().True(ok)
	return v
}

func (s *ManagerSuite) TestInsertAndFind() {
	stored := s.book(1, "TDD")
	s.Require().NoError(s.manager.Insert(s.ctx, stored, "_id"))

	e, found, err := s.manager.Find(s.ctx, s.name, column.Of("_id", int64(1)))
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(s.name, e.Name())
	s.Equal("TDD", s.title(e))

	authors, ok := e.Find("authors")
	s.Require().True(ok)
	s.True(authors.IsEntity())
	chapters, ok := e.Find("chapters")
	s.Require().True(ok)
	s.True(chapters.IsCollection())
	s.Len(chapters.Value, 2)

	_, found, err = s.manager.Find(s.ctx, s.name, column.Of("_id", int64(2)))
	s.Require().NoError(err)
	s.False(found)
}

func (s *ManagerSuite) TestInsertReplaces() {
	s.Require().NoError(s.manager.Insert(s.ctx, s.book(1, "v1"), "_id"))
	s.Require().NoError(s.manager.Insert(s.ctx, s.book(1, "v2"), "_id"))

	all, err := s.manager.FindAll(s.ctx, s.name)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("v2", s.title(all[0]))
}

func (s *ManagerSuite) TestUpdate() {
	err := s.manager.Update(s.ctx, s.book(1, "missing"), "_id")
	s.True(errors.IsType(err, errors.ErrorTypeNotFound), "got %v", err)

	s.Require().NoError(s.manager.Insert(s.ctx, s.book(1, "v1"), "_id"))
	s.Require().NoError(s.manager.Update(s.ctx, s.book(1, "v2"), "_id"))

	e, found, err := s.manager.Find(s.ctx, s.name, column.Of("_id", int64(1)))
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("v2", s.title(e))
}

func (s *ManagerSuite) TestFindAllAndDelete() {
	for i := int64(1); i <= 3; i++ {
		s.Require().NoError(s.manager.Insert(s.ctx, s.book(i, "book "+strconv.FormatInt(i, 10)), "_id"))
	}
	all, err := s.manager.FindAll(s.ctx, s.name)
	s.Require().NoError(err)
	s.Len(all, 3)

	s.Require().NoError(s.manager.Delete(s.ctx, s.name, column.Of("_id", int64(2))))
	s.Require().NoError(s.manager.Delete(s.ctx, s.name, column.Of("_id", int64(2))))

	all, err = s.manager.FindAll(s.ctx, s.name)
	s.Require().NoError(err)
	s.Len(all, 2)

	none, err := s.manager.FindAll(s.ctx, s.name+"Empty")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ManagerSuite) TestMissingKeyColumn() {
	err := s.manager.Insert(s.ctx, column.EntityOf(s.name, column.Of("name", "no key")), "_id")
	s.True(errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
}
