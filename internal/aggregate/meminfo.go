package aggregate

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// meminfoPath is overridable in tests.
var meminfoPath = "/proc/meminfo"

// readMemoryUsage parses /proc/meminfo and returns the memory saturation
// percentage: (MemTotal - MemAvailable) / MemTotal.
func readMemoryUsage() (float64, error) {
	file, err := os.Open(meminfoPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var memTotal, memAvailable float64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			if parts := strings.Fields(line); len(parts) >= 2 {
				memTotal, _ = strconv.ParseFloat(parts[1], 64)
			}
		}
		if strings.HasPrefix(line, "MemAvailable:") {
			if parts := strings.Fields(line); len(parts) >= 2 {
				memAvailable, _ = strconv.ParseFloat(parts[1], 64)
			}
		}
		if memTotal > 0 && memAvailable > 0 {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if memTotal == 0 {
		return 0, fmt.Errorf("could not determine MemTotal")
	}
	return ((memTotal - memAvailable) / memTotal) * 100.0, nil
}
