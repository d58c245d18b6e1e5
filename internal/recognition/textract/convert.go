package textract

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

func convertBlock(b types.Block) entity.Block {
	out := entity.Block{
		ID:   aws.ToString(b.Id),
		Type: entity.BlockType(b.BlockType),
		Text: aws.ToString(b.Text),
		Page: int(aws.ToInt32(b.Page)),
	}
	if b.Confidence != nil {
		c := float64(*b.Confidence)
		out.Confidence = &c
	}
	for _, et := range b.EntityTypes {
		out.EntityTypes = append(out.EntityTypes, string(et))
	}
	for _, rel := range b.Relationships {
		out.Relationships = append(out.Relationships, entity.Relationship{
			Type: entity.RelationType(rel.Type),
			IDs:  append([]string(nil), rel.Ids...),
		})
	}
	return out
}

func convertWarnings(ws []types.Warning) []string {
	var out []string
	for _, w := range ws {
		out = append(out, fmt.Sprintf("%s on pages %v", aws.ToString(w.ErrorCode), w.Pages))
	}
	return out
}
