// Package video handles uploaded recordings. Uploads land in a local staging
// directory as pending rows; background workers claim them one at a time,
// transcode with ffmpeg, upload the result and a thumbnail to S3, and mark
// the row ready. Failed runs retry until the attempt cap.
package video
