package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/rbplint/pkg/version"
)

func TestInfo_String(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		info version.Info
		want string
	}{
		"release": {
			info: version.Info{
				Version:   "v1.2.3",
				Revision:  "abc1234",
				BuildDate: "2026-01-02",
				GoVersion: "go1.25.5",
				Platform:  "linux/amd64",
			},
			want: "version:    v1.2.3\n" +
				"revision:   abc1234\n" +
				"build date: 2026-01-02\n" +
				"go version: go1.25.5\n" +
				"platform:   linux/amd64\n",
		},
		"empty": {
			info: version.Info{},
			want: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.info.String())
		})
	}
}

func TestGetInfo(t *testing.T) {
	t.Parallel()

	info := version.GetInfo()
	assert.Equal(t, version.GetVersion(), info.Version)
	assert.Equal(t, version.GoOS+"/"+version.GoArch, info.Platform)
	assert.NotEmpty(t, info.GoVersion)
}
