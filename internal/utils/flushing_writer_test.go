package utils_test

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/subssh/internal/utils"
)

func TestFlushingWriterFlushesBufferedDestination(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	bufferedWriter := bufio.NewWriterSize(destination, 4096)
	flushingWriter := utils.NewFlushingWriter(bufferedWriter)

	_, writeError := io.WriteString(flushingWriter, "change to SSH access. moveit_jacobian.git\n")
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, "change to SSH access. moveit_jacobian.git\n", destination.String())
}

func TestNewFlushingWriterWrapsOnce(testInstance *testing.T) {
	flushingWriter := utils.NewFlushingWriter(&bytes.Buffer{})
	require.Same(testInstance, flushingWriter, utils.NewFlushingWriter(flushingWriter))
	require.Equal(testInstance, io.Discard, utils.NewFlushingWriter(nil))
}
