package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseKey(t *testing.T) {
	assert.Equal(t, "gradebook:course:c1:stats", CourseKey("c1", "stats"))
	assert.Equal(t, "gradebook:course:c1:at-risk:70", CourseKey("c1", "at-risk", "", "70"))
	assert.Equal(t, "gradebook:course:a|b:ranking", CourseKey("a:b", "ranking"))
	assert.Equal(t, "gradebook:course:c1:*", CoursePattern("c1"))
}
