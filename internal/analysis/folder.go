package analysis

import "time"

// folderTimeLayout renders local wall-clock time with a numeric UTC offset,
// e.g. "2017-03-14 09:26:53-05:00".
const folderTimeLayout = "2006-01-02 15:04:05-07:00"

// ResultsFolderName names the per-run results folder.
func ResultsFolderName(now time.Time, displayName string) string {
	return now.Format(folderTimeLayout) + " " + displayName
}
