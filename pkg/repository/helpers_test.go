package repository

import "github.com/smallbiznis/contractledger/pkg/db/pagination"

func paginationOf(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
