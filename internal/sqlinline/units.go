package sqlinline

const QInsertGenerationUnit = `--sql 2011a659-145d-4e92-8c9c-a8e9ac3c838d
insert into generation_units (
    id, job_id, user_id, unit_index, original_url, style, role,
    generated_urls, is_favorited, model_id, status, created_at
)
values ($1::uuid, $2::uuid, $3::uuid, $4::int, $5::text, $6::text, $7::text,
        '{}'::text[], false, $8::text, 'PROCESSING', now())
returning created_at;
`

const QCompleteGenerationUnit = `--sql 16281ba6-d2e1-4d9b-bddf-7c6eafd452fe
update generation_units
set status = 'COMPLETED',
    generated_urls = $2::text[],
    error = null,
    completed_at = now()
where id = $1::uuid;
`

const QFailGenerationUnit = `--sql 02c3c0c9-14d5-4c6f-bdf6-26b477cf6eb7
update generation_units
set status = 'FAILED',
    generated_urls = '{}'::text[],
    selected_url = null,
    error = $2::text,
    completed_at = now()
where id = $1::uuid;
`

const QSelectGenerationUnit = `--sql 8fe9811c-bf16-453e-9c6d-02e8572131c2
select id::text, job_id::text, user_id::text, unit_index, original_url, style, role,
       generated_urls, selected_url, is_favorited, model_id, status, coalesce(error, ''), created_at, completed_at
from generation_units
where id = $1::uuid and user_id = $2::uuid;
`

const QListGenerationUnitsByJob = `--sql 709a969e-69e1-4eda-9d0a-4a4f9f028963
select id::text, job_id::text, user_id::text, unit_index, original_url, style, role,
       generated_urls, selected_url, is_favorited, model_id, status, coalesce(error, ''), created_at, completed_at
from generation_units
where job_id = $1::uuid and user_id = $2::uuid
order by unit_index asc;
`

const QUpdateGenerationUnit = `--sql 1d9f37f3-47fc-4579-ad2e-3ac2392d101b
update generation_units
set selected_url = coalesce($3::text, selected_url),
    is_favorited = coalesce($4::bool, is_favorited)
where id = $1::uuid and user_id = $2::uuid
returning id::text, job_id::text, user_id::text, unit_index, original_url, style, role,
          generated_urls, selected_url, is_favorited, model_id, status, coalesce(error, ''), created_at, completed_at;
`
