package replies

import "checkin-service/internal/models"

// Aggregate groups flat reply records by member.
//
// One group is emitted per id in whoHasReplied, in that order, even when the
// member has no matching record. A group's replies keep their order from flat,
// and its name and avatar come from the member's first record only. Identity
// fields are stripped from the individual replies.
func Aggregate(flat []models.ReplyRecord, whoHasReplied []string) []models.MemberReplyGroup {
	byMember := make(map[string][]models.ReplyRecord, len(whoHasReplied))
	for _, record := range flat {
		byMember[record.ProfileID] = append(byMember[record.ProfileID], record)
	}

	groups := make([]models.MemberReplyGroup, 0, len(whoHasReplied))
	for _, profileID := range whoHasReplied {
		records := byMember[profileID]

		group := models.MemberReplyGroup{
			ProfileID: profileID,
			Replies:   make([]models.Reply, 0, len(records)),
		}
		if len(records) > 0 {
			group.Name = records[0].Name
			group.AvatarURL = records[0].AvatarURL
		}
		for _, record := range records {
			group.Replies = append(group.Replies, record.Strip())
		}

		groups = append(groups, group)
	}

	return groups
}
