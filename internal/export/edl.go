package export

import (
	"fmt"
	"math"
	"strings"
)

// GenerateEDL renders a CMX-style edit decision list for the visible cuts.
// Record times accumulate at each cut's working-timeline length, so speed
// changes shorten or stretch record ranges relative to source ranges; cuts
// with a non-default speed also get a motion memo line carrying the frame
// rate the clip should play at.
func GenerateEDL(cuts []Cut, title, mediaPath string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 60))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffset := 0.0
	for i, cut := range cuts {
		srcIn := secondsToTimecode(cut.SourceStart, fps)
		srcOut := secondsToTimecode(cut.SourceEnd, fps)
		recDur := (cut.SourceEnd - cut.SourceStart) / cut.Speed
		recIn := secondsToTimecode(recordOffset, fps)
		recOut := secondsToTimecode(recordOffset+recDur, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
		)
		if cut.Speed != 1.0 {
			lines = append(lines, fmt.Sprintf("M2   AX       %05.1f                %s", cut.Speed*frameRate, srcIn))
		}
		lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", mediaPath))

		recordOffset += recDur
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToTimecode(sec float64, fps int) string {
	totalFrames := int(math.Round(sec * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
